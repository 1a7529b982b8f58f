package cfapi

// ScriptMetadata is the metadata part of a script upload
type ScriptMetadata struct {
	MainModule         string          `json:"main_module"`
	CompatibilityDate  string          `json:"compatibility_date,omitempty"`
	CompatibilityFlags []string        `json:"compatibility_flags,omitempty"`
	Bindings           []Binding       `json:"bindings,omitempty"`
	Assets             *AssetsMetadata `json:"assets,omitempty"`
	KeepAssets         bool            `json:"keep_assets,omitempty"`
}

// AssetsMetadata embeds the completion token of an asset upload session
type AssetsMetadata struct {
	JWT string `json:"jwt"`
}

// Binding is one resource binding of a script
type Binding struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	NamespaceID string `json:"namespace_id,omitempty"`
	Text        string `json:"text,omitempty"`
}

// Module is one code part of a script upload
type Module struct {
	Name        string
	Content     []byte
	ContentType string
}

// ScriptVersion is the result of a script upload
type ScriptVersion struct {
	ID         string `json:"id"`
	ETag       string `json:"etag,omitempty"`
	HasAssets  bool   `json:"has_assets,omitempty"`
	CreatedOn  string `json:"created_on,omitempty"`
	ModifiedOn string `json:"modified_on,omitempty"`
}
