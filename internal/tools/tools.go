package tools

import (
	"io"
	"time"

	"github.com/STTM-NSU/options-tracker/internal/logger"
	"github.com/bytedance/sonic"
	"resty.dev/v3"
)

const _jsonContentType = "json"

// NewRestyClient builds a client that encodes and decodes JSON with sonic.
func NewRestyClient(baseURL string, timeout time.Duration, logger logger.Logger) *resty.Client {
	return resty.New().
		SetLogger(logger).
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		AddContentTypeEncoder(_jsonContentType, EncodeJSON).
		AddContentTypeDecoder(_jsonContentType, DecodeJSON)
}

func EncodeJSON(w io.Writer, v any) error {
	return sonic.ConfigDefault.NewEncoder(w).Encode(v)
}

func DecodeJSON(r io.Reader, v any) error {
	return sonic.ConfigDefault.NewDecoder(r).Decode(v)
}
