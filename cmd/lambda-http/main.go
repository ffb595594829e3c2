package main

// Build the API Lambda:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"career-hub/internal/bootstrap"
	"career-hub/internal/shared/config"
	"career-hub/internal/shared/telemetry"
)

// proxy builds the router on the first invocation. A failed build is retried
// on the next invocation instead of poisoning the warm container.
type proxy struct {
	mu      sync.Mutex
	adapter *ginadapter.GinLambdaV2
}

func (p *proxy) get() (*ginadapter.GinLambdaV2, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.adapter != nil {
		return p.adapter, nil
	}
	cfg := config.Load()
	if err := telemetry.Init(cfg.LogFormat, cfg.LogLevel); err != nil {
		return nil, err
	}
	app, err := bootstrap.Build(cfg)
	if err != nil {
		return nil, err
	}
	p.adapter = ginadapter.NewV2(app.Router)
	return p.adapter, nil
}

func (p *proxy) handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	adapter, err := p.get()
	if err != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": err})
		return events.APIGatewayV2HTTPResponse{
			StatusCode: http.StatusServiceUnavailable,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       `{"error":{"code":"bootstrap_failed","message":"service is starting, retry shortly"}}`,
		}, nil
	}
	return adapter.ProxyWithContext(ctx, req)
}

func main() {
	p := &proxy{}
	lambda.Start(p.handle)
}
