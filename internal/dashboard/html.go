package dashboard

const cardHTML = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <meta http-equiv="refresh" content="60">
    <title>{{.Labels.Title}}</title>
    <style>
        body { font-family: -apple-system, system-ui, sans-serif; background: #f5f5f5; margin: 0; padding: 2rem; }
        .card { background: #fff; border-radius: 12px; box-shadow: 0 2px 8px rgba(0,0,0,0.08); padding: 1.5rem 2rem; max-width: 420px; }
        .title { font-size: 24px; color: #a0a0a0; }
        .highlight { font-size: 60px; font-weight: 300; line-height: 60px; }
        .side { display: flex; margin-top: 15px; }
        .side > * { margin-right: 30px; }
        .val { font-size: 16px; line-height: 20px; }
        .label { color: #a0a0a0; font-size: 16px; font-weight: 500; }
        .updated { color: #c0c0c0; font-size: 12px; margin-top: 15px; }
    </style>
</head>
<body>
    <div class="card">
        <div class="world">
            <div class="title">{{.Labels.Title}}</div>
            {{- if .Ready}}
            <div class="highlight">{{.Cases}}</div>
            <div class="side">
                <div>
                    <div class="val">{{.Deaths}}</div>
                    <div class="label">{{.Labels.Deaths}}</div>
                </div>
                <div>
                    <div class="val">{{.Recovered}}</div>
                    <div class="label">{{.Labels.Recovered}}</div>
                </div>
            </div>
            <div class="updated">{{.Labels.Updated}}: {{.Updated}}</div>
            {{- else}}
            <div class="label">{{.Labels.Pending}}</div>
            {{- end}}
        </div>
    </div>
</body>
</html>`
