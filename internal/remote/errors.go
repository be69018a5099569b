package remote

import (
	"context"
	"errors"
	"net"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"

	"github.com/hashmirror/hashmirror/internal/mirror"
)

// classify maps transport and API failures onto the engine's error taxonomy.
// Throttling and server-side failures are transient; everything the service
// rejected outright (permissions, quota, bad request) is permanent.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "Throttling", "TooManyRequests",
			"RequestTimeout", "SlowDown", "ServiceUnavailable", "InternalError":
			return mirror.Transient(op, err)
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		status := respErr.HTTPStatusCode()
		if status == 408 || status == 429 || status >= 500 {
			return mirror.Transient(op, err)
		}
		return mirror.Permanent(op, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return mirror.Transient(op, err)
	}

	if apiErr != nil {
		return mirror.Permanent(op, err)
	}

	// connection resets and friends surface as plain errors
	return mirror.Transient(op, err)
}

// isNotFound reports whether the error is an object-missing reply.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	var respErr *awshttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404
}
