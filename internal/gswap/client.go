// Package gswap implements the transport client: an HTTP+JSON gateway for
// quote/pool/asset queries and swap submission, plus a push-style
// notification channel delivering terminal transaction outcomes.
//
// This package is the boundary named in spec.md §1 "out of scope, specified
// only at their interface" — everything in it talks to a real chain gateway;
// it contains no signer and has no trading logic of its own.
package gswap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/sentientforest/gswap-interesting-trader-bot/internal/poolcache"
	"github.com/sentientforest/gswap-interesting-trader-bot/internal/tokenkey"
	"github.com/sentientforest/gswap-interesting-trader-bot/pkg/errs"
)

// Endpoints configures the gateway/bundler/backend base URLs and the
// contract path the DEX's composite-pool and swap methods live under.
type Endpoints struct {
	GatewayBaseURL  string
	BundlerBaseURL  string
	BackendBaseURL  string
	DexContractPath string
}

// Client is the HTTP+JSON gateway client. It holds no wallet key material;
// swap submission accepts a pre-built, already-signed payload from the
// caller's signer.
type Client struct {
	endpoints  Endpoints
	httpClient *http.Client
}

// New builds a Client against the given endpoints using a default HTTP
// client with a conservative request timeout.
func New(endpoints Endpoints) *Client {
	return &Client{
		endpoints: endpoints,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) post(ctx context.Context, baseURL, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errs.Transport(err, "marshal request body for %s", path)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errs.Transport(err, "build request for %s", path)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errs.Transport(err, "request %s", path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Transport(err, "read response body for %s", path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errs.Transport(nil, "%s returned HTTP %d: %s", path, resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errs.Transport(err, "decode response body for %s", path)
	}
	return nil
}

type compositePoolRequest struct {
	Token0 string `json:"token0"`
	Token1 string `json:"token1"`
	Fee    int    `json:"fee"`
}

type tickWire struct {
	NetLiquidity     string `json:"liquidityNet"`
	GrossLiquidity   string `json:"liquidityGross"`
	FeeGrowthOutside string `json:"feeGrowthOutside"`
}

type compositePoolData struct {
	Token0       string              `json:"token0"`
	Token1       string              `json:"token1"`
	Fee          int                 `json:"fee"`
	Decimals0    int32               `json:"decimals0"`
	Decimals1    int32               `json:"decimals1"`
	SqrtPriceX96 string              `json:"sqrtPrice"`
	Tick         int32               `json:"tick"`
	Liquidity    string              `json:"liquidity"`
	TickSpacing  int                 `json:"tickSpacing"`
	Ticks        map[string]tickWire `json:"ticks"`
}

type compositePoolResponse struct {
	Data *compositePoolData `json:"Data"`
}

func parseBigInt(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("gswap: invalid integer string %q", s)
	}
	return n, nil
}

// GetCompositePool fetches full pool state — √price, liquidity, tick
// spacing, and sparse tick map — and parses it into a poolcache.Snapshot.
// Implements poolcache.Fetcher.
func (c *Client) GetCompositePool(ctx context.Context, t0, t1 tokenkey.Key, fee int) (*poolcache.Snapshot, error) {
	var resp compositePoolResponse
	err := c.post(ctx, c.endpoints.GatewayBaseURL, c.endpoints.DexContractPath+"/GetCompositePool", compositePoolRequest{
		Token0: t0.String(),
		Token1: t1.String(),
		Fee:    fee,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, errs.Transport(nil, "GetCompositePool: missing Data field for %s/%s fee=%d", t0, t1, fee)
	}
	d := resp.Data

	sqrtPrice, err := parseBigInt(d.SqrtPriceX96)
	if err != nil {
		return nil, errs.Transport(err, "GetCompositePool: bad sqrtPrice")
	}
	liquidity, err := parseBigInt(d.Liquidity)
	if err != nil {
		return nil, errs.Transport(err, "GetCompositePool: bad liquidity")
	}

	ticks := make(map[int32]poolcache.TickInfo, len(d.Ticks))
	for tickStr, tw := range d.Ticks {
		tickIdx, ok := new(big.Int).SetString(tickStr, 10)
		if !ok {
			continue
		}
		net, _ := parseBigInt(tw.NetLiquidity)
		gross, _ := parseBigInt(tw.GrossLiquidity)
		feeGrowth, _ := parseBigInt(tw.FeeGrowthOutside)
		if net == nil {
			net = new(big.Int)
		}
		if gross == nil {
			gross = new(big.Int)
		}
		if feeGrowth == nil {
			feeGrowth = new(big.Int)
		}
		ticks[int32(tickIdx.Int64())] = poolcache.TickInfo{
			NetLiquidity:     net,
			GrossLiquidity:   gross,
			FeeGrowthOutside: feeGrowth,
		}
	}

	return &poolcache.Snapshot{
		Token0:       t0,
		Token1:       t1,
		Fee:          fee,
		Decimals0:    d.Decimals0,
		Decimals1:    d.Decimals1,
		SqrtPriceX96: sqrtPrice,
		Tick:         d.Tick,
		Liquidity:    liquidity,
		TickSpacing:  d.TickSpacing,
		Ticks:        ticks,
		FetchedAt:    time.Now(),
	}, nil
}

// Asset is one line of a wallet's inventory, as reported by the backend.
// TokenClassKey is populated when the backend reports the nested shape;
// otherwise Symbol must be used with the template tail (see internal/balance).
type Asset struct {
	Symbol        string  `json:"symbol"`
	Quantity      string  `json:"quantity"`
	Decimals      int32   `json:"decimals"`
	TokenClassKey *string `json:"tokenClassKey"`
}

type userAssetsResponse struct {
	Data struct {
		Tokens []Asset `json:"tokens"`
		Count  int     `json:"count"`
	} `json:"Data"`
}

// GetUserAssets fetches a page of the wallet's asset inventory.
func (c *Client) GetUserAssets(ctx context.Context, address string, page, pageSize int) ([]Asset, error) {
	var resp userAssetsResponse
	err := c.post(ctx, c.endpoints.BackendBaseURL, "/GetUserAssets", map[string]interface{}{
		"address":  address,
		"page":     page,
		"pageSize": pageSize,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Data.Tokens, nil
}

// PoolData is the minimal pool shape the fee-tier probe needs: whether a
// pool exists at all and how much liquidity it reports.
type PoolData struct {
	Exists    bool
	Liquidity *big.Int
}

// GetPoolData probes a single fee tier for a token pair, used by the
// executor's fee-tier selection. A non-existent pool is reported rather
// than returned as an error.
func (c *Client) GetPoolData(ctx context.Context, t0, t1 tokenkey.Key, fee int) (PoolData, error) {
	snap, err := c.GetCompositePool(ctx, t0, t1, fee)
	if err != nil {
		if kind, ok := errs.KindOf(err); ok && kind == errs.KindTransport {
			log.Debug("pool probe found no pool", "t0", t0, "t1", t1, "fee", fee)
			return PoolData{Exists: false}, nil
		}
		return PoolData{}, err
	}
	return PoolData{Exists: true, Liquidity: snap.Liquidity}, nil
}

// SwapParams is the fully-specified exact-input swap submission request.
type SwapParams struct {
	TokenIn          tokenkey.Key
	TokenOut         tokenkey.Key
	Fee              int
	AmountIn         string
	AmountOutMinimum string
	Signer           string
	SignedPayload    string
}

type submitSwapResponse struct {
	Data struct {
		TxID string `json:"txId"`
	} `json:"Data"`
}

// SubmitSwap submits an already-signed exact-input swap and returns the
// bundler-assigned transaction id used to await the notification channel.
func (c *Client) SubmitSwap(ctx context.Context, params SwapParams) (string, error) {
	var resp submitSwapResponse
	err := c.post(ctx, c.endpoints.BundlerBaseURL, c.endpoints.DexContractPath+"/Swap", map[string]interface{}{
		"tokenIn":          params.TokenIn.String(),
		"tokenOut":         params.TokenOut.String(),
		"fee":              params.Fee,
		"amountIn":         params.AmountIn,
		"amountOutMinimum": params.AmountOutMinimum,
		"signer":           params.Signer,
		"signedPayload":    params.SignedPayload,
	}, &resp)
	if err != nil {
		return "", errs.Submission(err, "submit swap %s->%s", params.TokenIn, params.TokenOut)
	}
	if resp.Data.TxID == "" {
		return "", errs.Submission(nil, "submit swap %s->%s: empty txId", params.TokenIn, params.TokenOut)
	}
	return resp.Data.TxID, nil
}
