//go:build sonic

package cfapi

import "github.com/bytedance/sonic"

// built with -tags sonic, request and envelope bodies go through sonic
var (
	encodeJSON = sonic.ConfigStd.Marshal
	decodeJSON = sonic.ConfigStd.Unmarshal
)
