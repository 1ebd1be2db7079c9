package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"
)

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Serve the API as AWS Lambda function behind an API Gateway HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newService(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer s.close()
		lambda.Start(lambdaHandler(s.router))
		return nil
	},
}

// gatewayHandler handles API Gateway HTTP API (payload version 2.0) events
type gatewayHandler func(ctx context.Context, event events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error)

// lambdaHandler translates gateway events into requests for handler
func lambdaHandler(handler http.Handler) gatewayHandler {
	return func(ctx context.Context, event events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		r, err := requestFromEvent(ctx, event)
		if err != nil {
			return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest, Body: err.Error()}, nil
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		return responseFromRecorder(rec), nil
	}
}

func requestFromEvent(ctx context.Context, event events.APIGatewayV2HTTPRequest) (*http.Request, error) {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		var err error
		if body, err = base64.StdEncoding.DecodeString(event.Body); err != nil {
			return nil, err
		}
	}
	target := event.RawPath
	if target == "" {
		target = event.RequestContext.HTTP.Path
	}
	if event.RawQueryString != "" {
		target += "?" + event.RawQueryString
	}
	r, err := http.NewRequestWithContext(ctx, event.RequestContext.HTTP.Method, target, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for key, value := range event.Headers {
		r.Header.Set(key, value)
	}
	if len(event.Cookies) > 0 {
		r.Header.Set("Cookie", strings.Join(event.Cookies, "; "))
	}
	if host := event.Headers["host"]; host != "" {
		r.Host = host
	}
	r.RemoteAddr = event.RequestContext.HTTP.SourceIP
	return r, nil
}

// textual returns true if a response with header can be returned as plain text
func textual(header http.Header) bool {
	if header.Get("Content-Encoding") != "" {
		return false
	}
	contentType := header.Get("Content-Type")
	return contentType == "" ||
		strings.HasPrefix(contentType, "text/") ||
		strings.HasPrefix(contentType, "application/json")
}

func responseFromRecorder(rec *httptest.ResponseRecorder) events.APIGatewayV2HTTPResponse {
	res := rec.Result()
	response := events.APIGatewayV2HTTPResponse{
		StatusCode: res.StatusCode,
		Headers:    map[string]string{},
		Cookies:    res.Header.Values("Set-Cookie"),
	}
	for key, values := range res.Header {
		if key == "Set-Cookie" {
			continue
		}
		response.Headers[key] = strings.Join(values, ",")
	}
	body := rec.Body.Bytes()
	if textual(res.Header) {
		response.Body = string(body)
	} else {
		response.Body = base64.StdEncoding.EncodeToString(body)
		response.IsBase64Encoded = true
	}
	return response
}
