/*
Package req provides helpers for decoding client input into typed structs.

Websocket payloads are decoded strictly, rejecting unknown fields and trailing content.
Failures are reported as *errs.CustomError.
*/
package req

import (
	"bytes"
	"encoding/json"
	"io"

	"teamsync/internal/pkg/errs"
)

// DecodeStrict decodes data into dst, rejecting unknown fields and trailing content.
func DecodeStrict(data []byte, dst any) *errs.CustomError {
	if len(bytes.TrimSpace(data)) == 0 {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	return decode(bytes.NewReader(data), dst)
}

func decode(r io.Reader, dst any) *errs.CustomError {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}
