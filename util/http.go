package util

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"
)

var httpClient *http.Client

// HTTPClient returns the shared HTTP client
func HTTPClient() *http.Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return httpClient
}

// ReqByObjJSON marshals input, sends it to url with method and unmarshals
// a JSON response into output. Non-2xx responses become an HTTPErr.
func ReqByObjJSON(method, url, authKey string, input, output interface{}) (int, error) {
	return ReqByObjJSONContext(context.Background(), method, url, authKey, input, output)
}

// ReqByObjJSONContext is ReqByObjJSON bound to ctx
func ReqByObjJSONContext(ctx context.Context, method, url, authKey string, input, output interface{}) (int, error) {
	return ReqByObjJSONClient(ctx, HTTPClient(), method, url, authKey, input, output)
}

// ReqByObjJSONClient is ReqByObjJSONContext sent through client
func ReqByObjJSONClient(ctx context.Context, client *http.Client, method, url, authKey string, input, output interface{}) (int, error) {
	data, status, err := ReqByObj(ctx, client, method, url, authKey, input)
	if err != nil {
		return status, err
	}
	if output != nil {
		if err = json.Unmarshal(data, output); err != nil {
			return status, NewError(DataAccess, "unexpected response from %s: %v", url, err)
		}
	}
	return status, nil
}

// ReqByObj marshals input as JSON, sends it through client and returns the
// raw response body. Non-2xx responses become an HTTPErr.
func ReqByObj(ctx context.Context, client *http.Client, method, url, authKey string, input interface{}) ([]byte, int, error) {
	var body io.Reader
	if input != nil {
		data, err := json.Marshal(input)
		if err != nil {
			return nil, 0, NewError(Configuration, "failed to marshal request for %s: %v", url, err)
		}
		body = bytes.NewReader(data)
	}
	request, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, 0, NewError(DataAccess, "failed to create request for %s: %v", url, err)
	}
	request.Header.Set("Content-Type", "application/json")
	if authKey != "" {
		request.Header.Set("Authorization", authKey)
	}

	response, err := client.Do(request)
	if err != nil {
		return nil, 0, WrapError(DataAccess, err)
	}
	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, response.StatusCode, WrapError(DataAccess, err)
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, response.StatusCode, HTTPErr{Status: response.StatusCode, Message: string(data)}
	}
	return data, response.StatusCode, nil
}

// HTTPError logs the message and writes it to the client with the given status
func HTTPError(request *http.Request, writer http.ResponseWriter, ctx LogContext, message string, status int) {
	LogAudit(ctx, LogAuditInput{Actor: request.URL.String(), Action: request.Method + " response", Actee: request.RemoteAddr, Message: message, Severity: WARNING})
	http.Error(writer, message, status)
}

// StatusForError maps an error to the HTTP status the broker reports for it
func StatusForError(err error) int {
	var he HTTPErr
	if errors.As(err, &he) {
		return he.Status
	}
	switch {
	case IsKind(err, Configuration):
		return http.StatusBadRequest
	case IsKind(err, Authentication):
		return http.StatusUnauthorized
	case IsKind(err, DataAccess):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
