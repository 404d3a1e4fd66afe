package web

import (
	"context"
	"fmt"
	"net/http"
)

// httpStatus allows a response value to override the default status code.
type httpStatus interface {
	HTTPStatus() int
}

// Redirect is an Encoder that produces an HTTP redirect instead of a body.
type Redirect struct {
	URL    string
	Status int
}

// NewRedirect constructs a see-other redirect to the specified url.
func NewRedirect(url string) *Redirect {
	return &Redirect{
		URL:    url,
		Status: http.StatusSeeOther,
	}
}

// Encode implements the Encoder interface. A redirect carries no body.
func (r *Redirect) Encode() ([]byte, string, error) {
	return nil, "", nil
}

// Respond sends a response to the client.
func Respond(ctx context.Context, w http.ResponseWriter, dataModel Encoder) error {

	// If the context has been canceled, it means the client is no longer
	// waiting for a response.
	if err := ctx.Err(); err != nil {
		if err == context.Canceled {
			return fmt.Errorf("client disconnected, do not send response")
		}
	}

	if rd, ok := dataModel.(*Redirect); ok {
		w.Header().Set("Location", rd.URL)
		w.WriteHeader(rd.Status)
		return nil
	}

	var statusCode = http.StatusOK

	switch v := dataModel.(type) {
	case httpStatus:
		statusCode = v.HTTPStatus()

	case error:
		statusCode = http.StatusInternalServerError

	default:
		if dataModel == nil {
			statusCode = http.StatusNoContent
		}
	}

	if statusCode == http.StatusNoContent {
		w.WriteHeader(statusCode)
		return nil
	}

	data, contentType, err := dataModel.Encode()
	if err != nil {
		return fmt.Errorf("respond: encode: %w", err)
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(statusCode)

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("respond: write: %w", err)
	}

	return nil
}
