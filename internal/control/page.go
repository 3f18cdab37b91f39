package control

import "html/template"

var statusPage = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html>
<head><title>gswap-interesting-trader-bot</title></head>
<body>
<h1>Status</h1>
<p>Running: {{.Running}}</p>
<p>Uptime: {{.Uptime}}</p>
<p>Preferred token: {{.Config.PreferredToken}}</p>
<p>Last trade at: {{.LastTradeAt}}</p>
<p>Last arbitrage scan at: {{.LastArbScanAt}}</p>
<h2>Balance</h2>
<p>Preferred: {{.LastBalance.Preferred.Symbol}} {{.LastBalance.Preferred.Quantity}}</p>
<p>Gas: {{.LastBalance.Gas.Symbol}} {{.LastBalance.Gas.Quantity}}</p>
<h2>Arbitrage statistics</h2>
<p>Detected: {{.Stats.TotalDetected}}, executed: {{.Stats.TotalExecuted}}, success rate: {{.Stats.SuccessRate}}%</p>
<h2>Recent trades</h2>
<ul>
{{range .TradeHistory}}<li>{{.Source}} -&gt; {{.Target}}: {{.AmountOut}} ({{.Success}})</li>{{end}}
</ul>
</body>
</html>
`))
