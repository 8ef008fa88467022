package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"scalpcare-backend/internal/bootstrap"
	"scalpcare-backend/internal/shared/config"
	"scalpcare-backend/internal/shared/server/respond"
	"scalpcare-backend/internal/shared/telemetry"
)

var (
	initOnce sync.Once
	proxy    *apiProxy
)

// apiProxy serves API Gateway v2 requests through the Gin router, or answers
// every request with an INTERNAL error when the app failed to build.
type apiProxy struct {
	gin     *ginadapter.GinLambdaV2
	initErr error
}

func initApp() {
	app, err := bootstrap.Build(config.Load())
	if err != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": err.Error()})
		proxy = &apiProxy{initErr: err}
		return
	}
	proxy = &apiProxy{gin: ginadapter.NewV2(app.Router)}
}

func (p *apiProxy) serve(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	switch {
	case p.initErr != nil:
		return errorResponse(http.StatusInternalServerError, "INTERNAL", "service unavailable"), nil
	case p.gin == nil:
		return errorResponse(http.StatusInternalServerError, "INTERNAL", "router not initialized"), nil
	}
	return p.gin.ProxyWithContext(ctx, req)
}

func errorResponse(status int, code, message string) events.APIGatewayV2HTTPResponse {
	body, _ := json.Marshal(respond.ErrorResponse{Error: respond.ErrorBody{Code: code, Message: message}})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	initOnce.Do(initApp)
	return proxy.serve(ctx, req)
}

func main() {
	lambda.Start(handler)
}
