package cfapi

// Namespace is a KV namespace
type Namespace struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// KeyInfo is one listed key
type KeyInfo struct {
	Name       string `json:"name"`
	Expiration int64  `json:"expiration,omitempty"`
}

// KeyValue is one item of a bulk write
type KeyValue struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Base64 bool   `json:"base64,omitempty"`
}

type createNamespaceRequest struct {
	Title string `json:"title"`
}
