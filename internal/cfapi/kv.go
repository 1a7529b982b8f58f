package cfapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/imroc/req/v3"
)

const (
	v4Namespaces = "/accounts/{account_id}/storage/kv/namespaces"
	v4Keys       = "/accounts/{account_id}/storage/kv/namespaces/{namespace_id}/keys"
	v4Bulk       = "/accounts/{account_id}/storage/kv/namespaces/{namespace_id}/bulk"

	// BatchKeyMax is the number of items sent in one bulk request
	BatchKeyMax = 1000

	namespacePageSize = 100
	keysPageSize      = 1000
)

type KVAPI struct {
	client *req.Client
}

func newKVAPI(client *req.Client) *KVAPI {
	return &KVAPI{
		client: client,
	}
}

// ListNamespaces lists every namespace of the account
func (k *KVAPI) ListNamespaces(ctx context.Context) ([]Namespace, error) {
	var namespaces []Namespace
	for page := 1; ; page++ {
		env, err := send[[]Namespace](k.client.R().
			SetContext(ctx).
			SetQueryParam("page", strconv.Itoa(page)).
			SetQueryParam("per_page", strconv.Itoa(namespacePageSize)),
			http.MethodGet, v4Namespaces, "kv list namespaces")
		if err != nil {
			return nil, err
		}

		namespaces = append(namespaces, env.Result...)
		if len(env.Result) < namespacePageSize {
			return namespaces, nil
		}
	}
}

// CreateNamespace creates a namespace with the given title
func (k *KVAPI) CreateNamespace(ctx context.Context, title string) (*Namespace, error) {
	env, err := send[Namespace](k.client.R().
		SetContext(ctx).
		SetRetryCount(0).
		SetBody(&createNamespaceRequest{Title: title}),
		http.MethodPost, v4Namespaces, "kv create namespace")
	if err != nil {
		return nil, err
	}
	return &env.Result, nil
}

// EnsureNamespace returns the namespace with the given title, creating it when missing
func (k *KVAPI) EnsureNamespace(ctx context.Context, title string) (*Namespace, error) {
	ns, err := k.FindNamespace(ctx, title)
	if err != nil || ns != nil {
		return ns, err
	}

	slog.Info("kv create namespace", "title", title)
	return k.CreateNamespace(ctx, title)
}

// FindNamespace returns the namespace with the title, nil when there is none
func (k *KVAPI) FindNamespace(ctx context.Context, title string) (*Namespace, error) {
	namespaces, err := k.ListNamespaces(ctx)
	if err != nil {
		return nil, err
	}
	for _, ns := range namespaces {
		if ns.Title == title {
			return &ns, nil
		}
	}
	return nil, nil
}

// ListKeys lists every key of a namespace, following the cursor
func (k *KVAPI) ListKeys(ctx context.Context, namespaceID, prefix string) ([]KeyInfo, error) {
	var (
		keys   []KeyInfo
		cursor string
	)
	for {
		r := k.client.R().
			SetContext(ctx).
			SetPathParam("namespace_id", namespaceID).
			SetQueryParam("limit", strconv.Itoa(keysPageSize))
		if prefix != "" {
			r.SetQueryParam("prefix", prefix)
		}
		if cursor != "" {
			r.SetQueryParam("cursor", cursor)
		}

		env, err := send[[]KeyInfo](r, http.MethodGet, v4Keys, "kv list keys")
		if err != nil {
			return nil, err
		}

		keys = append(keys, env.Result...)
		if env.ResultInfo == nil || env.ResultInfo.Cursor == "" {
			return keys, nil
		}
		cursor = env.ResultInfo.Cursor
	}
}

// BulkPut writes items in chunks of BatchKeyMax. Writes are not retried
func (k *KVAPI) BulkPut(ctx context.Context, namespaceID string, items []KeyValue) error {
	for start := 0; start < len(items); start += BatchKeyMax {
		end := min(start+BatchKeyMax, len(items))
		if len(items) > BatchKeyMax {
			slog.Debug("kv bulk put", "namespace", namespaceID, "from", start, "to", end, "total", len(items))
		}

		_, err := send[any](k.client.R().
			SetContext(ctx).
			SetRetryCount(0).
			SetPathParam("namespace_id", namespaceID).
			SetBody(items[start:end]),
			http.MethodPut, v4Bulk, "kv bulk put")
		if err != nil {
			return fmt.Errorf("keys %d-%d of %d: %w", start+1, end, len(items), err)
		}
	}
	return nil
}

// BulkDelete removes keys in chunks of BatchKeyMax
func (k *KVAPI) BulkDelete(ctx context.Context, namespaceID string, keys []string) error {
	for start := 0; start < len(keys); start += BatchKeyMax {
		end := min(start+BatchKeyMax, len(keys))

		_, err := send[any](k.client.R().
			SetContext(ctx).
			SetRetryCount(0).
			SetPathParam("namespace_id", namespaceID).
			SetBody(keys[start:end]),
			http.MethodDelete, v4Bulk, "kv bulk delete")
		if err != nil {
			return fmt.Errorf("keys %d-%d of %d: %w", start+1, end, len(keys), err)
		}
	}
	return nil
}
