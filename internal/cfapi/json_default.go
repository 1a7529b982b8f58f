//go:build !sonic

package cfapi

import "github.com/goccy/go-json"

var (
	encodeJSON = json.Marshal
	decodeJSON = json.Unmarshal
)
