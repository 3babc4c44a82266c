// Package jsonx routes the service's JSON encoding through goccy/go-json so
// websocket frames and request bodies share one implementation.
package jsonx

import "github.com/goccy/go-json"

var (
	Marshal       = json.Marshal
	MarshalIndent = json.MarshalIndent
	Unmarshal     = json.Unmarshal
	Valid         = json.Valid
	NewDecoder    = json.NewDecoder
)

type RawMessage = json.RawMessage
