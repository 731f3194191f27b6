package wire

import (
	"errors"
	"strings"
	"testing"
)

func TestFieldErrorEncodingPath(t *testing.T) {
	tests := []struct {
		name     string
		build    func() error
		wantPath string
		wantMsg  string
	}{
		{
			name: "single field",
			build: func() error {
				base := newFieldError("expected int32, got string")
				return wrapEncodingFieldError(base, "zip_code")
			},
			wantPath: "zip_code",
			wantMsg:  "expected int32, got string",
		},
		{
			name: "nested message path",
			build: func() error {
				base := newFieldError("message value must be map[string]interface{} or []byte, got float64")
				err := wrapEncodingFieldError(base, "site")
				err = wrapEncodingFieldError(err, "location")
				err = wrapEncodingFieldError(err, "device")
				return err
			},
			wantPath: "device.location.site",
			wantMsg:  "message value must be map[string]interface{} or []byte",
		},
		{
			name: "deep path stays flat",
			build: func() error {
				base := newFieldError("expected string, got int64")
				err := wrapEncodingFieldError(base, "metric")
				err = wrapEncodingFieldError(err, "readings")
				err = wrapEncodingFieldError(err, "device")
				err = wrapEncodingFieldError(err, "fleet")
				return err
			},
			wantPath: "fleet.device.readings.metric",
			wantMsg:  "expected string, got int64",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build()

			var fieldErr *FieldError
			if !errors.As(err, &fieldErr) {
				t.Fatalf("expected FieldError, got %T", err)
			}
			if fieldErr.IsDecoding {
				t.Error("encode-side wrap should leave IsDecoding false")
			}

			if got := strings.Join(fieldErr.FieldPath, "."); got != tt.wantPath {
				t.Errorf("expected path %q, got %q", tt.wantPath, got)
			}

			msg := err.Error()
			if !strings.Contains(msg, tt.wantPath) {
				t.Errorf("error message should contain path %q, got: %s", tt.wantPath, msg)
			}
			if !strings.Contains(msg, tt.wantMsg) {
				t.Errorf("error message should contain %q, got: %s", tt.wantMsg, msg)
			}

			// Each wrap extends the path of a single FieldError rather than
			// nesting a new one, so the operation prefix appears once no
			// matter how deep the field was.
			if n := strings.Count(msg, "encoding error"); n != 1 {
				t.Errorf("expected one operation prefix, found %d: %s", n, msg)
			}

			if errors.Unwrap(err) == nil {
				t.Error("Unwrap should return the underlying error")
			}
		})
	}
}

func TestFieldErrorDecodingPath(t *testing.T) {
	tests := []struct {
		name     string
		build    func() error
		wantPath string
		sentinel error
	}{
		{
			name: "single field",
			build: func() error {
				return wrapDecodingFieldError(ErrTruncated, "attributes")
			},
			wantPath: "attributes",
			sentinel: ErrTruncated,
		},
		{
			name: "nested message path",
			build: func() error {
				err := wrapDecodingFieldError(ErrMalformedVarint, "position")
				err = wrapDecodingFieldError(err, "location")
				err = wrapDecodingFieldError(err, "device")
				return err
			},
			wantPath: "device.location.position",
			sentinel: ErrMalformedVarint,
		},
		{
			name: "deep path stays flat",
			build: func() error {
				err := wrapDecodingFieldError(ErrNegativeLength, "street")
				err = wrapDecodingFieldError(err, "shipping")
				err = wrapDecodingFieldError(err, "order")
				err = wrapDecodingFieldError(err, "batch")
				return err
			},
			wantPath: "batch.order.shipping.street",
			sentinel: ErrNegativeLength,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build()

			var fieldErr *FieldError
			if !errors.As(err, &fieldErr) {
				t.Fatalf("expected FieldError, got %T", err)
			}
			if !fieldErr.IsDecoding {
				t.Error("decode-side wrap should set IsDecoding")
			}

			if got := strings.Join(fieldErr.FieldPath, "."); got != tt.wantPath {
				t.Errorf("expected path %q, got %q", tt.wantPath, got)
			}

			msg := err.Error()
			if !strings.Contains(msg, tt.wantPath) {
				t.Errorf("error message should contain path %q, got: %s", tt.wantPath, msg)
			}
			if n := strings.Count(msg, "decoding error"); n != 1 {
				t.Errorf("expected one operation prefix, found %d: %s", n, msg)
			}
			if strings.Contains(msg, "encoding error") {
				t.Errorf("decode-side message should not mention encoding, got: %s", msg)
			}

			// The sentinel stays reachable through the path wrapper.
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("expected errors.Is to match %v through the wrapper", tt.sentinel)
			}
		})
	}
}

func TestNewFieldError(t *testing.T) {
	err := newFieldError("unknown name %q for enum %s", "EXPRESS", "OrderStatus")
	if err == nil {
		t.Fatal("expected non-nil error")
	}
	if !strings.Contains(err.Error(), `unknown name "EXPRESS" for enum OrderStatus`) {
		t.Errorf("unexpected error message: %s", err.Error())
	}
}

func TestFieldErrorWithoutPath(t *testing.T) {
	err := &FieldError{Err: errors.New("registry is required to encode message fields")}
	want := "encoding error: registry is required to encode message fields"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestWrapFieldErrorNil(t *testing.T) {
	if err := wrapEncodingFieldError(nil, "quantities"); err != nil {
		t.Errorf("wrapping nil should stay nil, got %v", err)
	}
	if err := wrapDecodingFieldError(nil, "quantities"); err != nil {
		t.Errorf("wrapping nil should stay nil, got %v", err)
	}
}

func TestFieldErrorDirections(t *testing.T) {
	base := errors.New("expected bool, got string")

	encodingErr := wrapEncodingFieldError(base, "express")
	encodingErr = wrapEncodingFieldError(encodingErr, "order")

	decodingErr := wrapDecodingFieldError(base, "express")
	decodingErr = wrapDecodingFieldError(decodingErr, "order")

	var encFieldErr *FieldError
	if !errors.As(encodingErr, &encFieldErr) {
		t.Fatal("expected FieldError for encoding")
	}
	if encFieldErr.IsDecoding {
		t.Error("encoding error should have IsDecoding=false")
	}
	if !strings.Contains(encodingErr.Error(), "encoding error") {
		t.Errorf("encode-side message should name the operation, got: %s", encodingErr.Error())
	}
	if strings.Contains(encodingErr.Error(), "decoding error") {
		t.Errorf("encode-side message should not mention decoding, got: %s", encodingErr.Error())
	}

	var decFieldErr *FieldError
	if !errors.As(decodingErr, &decFieldErr) {
		t.Fatal("expected FieldError for decoding")
	}
	if !decFieldErr.IsDecoding {
		t.Error("decoding error should have IsDecoding=true")
	}
	if !strings.Contains(decodingErr.Error(), "decoding error") {
		t.Errorf("decode-side message should name the operation, got: %s", decodingErr.Error())
	}
	if strings.Contains(decodingErr.Error(), "encoding error") {
		t.Errorf("decode-side message should not mention encoding, got: %s", decodingErr.Error())
	}
}
