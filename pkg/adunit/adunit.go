// Package adunit models a decoded ad creative and the assets it references.
package adunit

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"reflect"
	"sort"

	"github.com/mitchellh/mapstructure"

	"github.com/Sternrassler/ad-asset-client/pkg/cache"
)

// ErrInvalidAdUnit is returned when a document does not describe a usable ad unit.
var ErrInvalidAdUnit = errors.New("invalid ad unit")

// Asset describes one remote file and where it is cached.
type Asset struct {
	Name      string          `mapstructure:"-"`
	URL       string          `mapstructure:"url"`
	Namespace cache.Namespace `mapstructure:"namespace"`
	Filename  string          `mapstructure:"filename"`

	// Checksum is the optional lowercase hex SHA-1 of the content.
	Checksum string `mapstructure:"checksum"`
}

// AdUnit is one decoded ad creative.
type AdUnit struct {
	AdID       string           `mapstructure:"ad_id"`
	Template   string           `mapstructure:"template"`
	Parameters map[string]any   `mapstructure:"parameters"`
	Assets     map[string]Asset `mapstructure:"assets"`
}

// CacheRefs returns the cache location of every asset, keyed by asset name.
func (u AdUnit) CacheRefs() map[string]cache.CacheRef {
	refs := make(map[string]cache.CacheRef, len(u.Assets))
	for name, asset := range u.Assets {
		refs[name] = cache.CacheRef{Namespace: asset.Namespace, Filename: asset.Filename}
	}
	return refs
}

// SortedAssets returns the assets ordered by name.
func (u AdUnit) SortedAssets() []Asset {
	out := make([]Asset, 0, len(u.Assets))
	for _, asset := range u.Assets {
		out = append(out, asset)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Decode builds an AdUnit from a successful response document.
// An asset without filename is stored under the last segment of its URL.
func Decode(document map[string]any) (AdUnit, error) {
	var unit AdUnit
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       namespaceDecodeHook(),
		WeaklyTypedInput: true,
		Result:           &unit,
	})
	if err != nil {
		return AdUnit{}, fmt.Errorf("create decoder: %w", err)
	}
	if err := decoder.Decode(document); err != nil {
		return AdUnit{}, fmt.Errorf("%w: %v", ErrInvalidAdUnit, err)
	}

	for name, asset := range unit.Assets {
		asset.Name = name
		if asset.URL == "" {
			return AdUnit{}, fmt.Errorf("%w: asset %q has no url", ErrInvalidAdUnit, name)
		}
		if !asset.Namespace.Valid() {
			return AdUnit{}, fmt.Errorf("%w: asset %q has no namespace", ErrInvalidAdUnit, name)
		}
		parsed, err := url.Parse(asset.URL)
		if err != nil {
			return AdUnit{}, fmt.Errorf("%w: asset %q: %v", ErrInvalidAdUnit, name, err)
		}
		if asset.Filename == "" {
			asset.Filename = path.Base(parsed.Path)
		}
		if asset.Filename == "" || asset.Filename == "/" || asset.Filename == "." {
			return AdUnit{}, fmt.Errorf("%w: asset %q has no file name", ErrInvalidAdUnit, name)
		}
		unit.Assets[name] = asset
	}
	return unit, nil
}

// namespaceDecodeHook turns namespace directory names ("images") into cache.Namespace.
func namespaceDecodeHook() mapstructure.DecodeHookFunc {
	target := reflect.TypeOf(cache.Namespace(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != target {
			return data, nil
		}
		dir, ok := data.(string)
		if !ok {
			return nil, fmt.Errorf("namespace must be a string, got %T", data)
		}
		ns, ok := cache.ParseNamespace(dir)
		if !ok {
			return nil, fmt.Errorf("unknown namespace %q", dir)
		}
		return ns, nil
	}
}
