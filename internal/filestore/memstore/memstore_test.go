package memstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/rowmodel/internal/errs"
	"github.com/koustreak/rowmodel/internal/filestore"
)

func TestListObjects(t *testing.T) {
	s := New(map[string]map[string]string{
		"models": {
			"shop.yaml":         "a",
			"crm/contacts.yaml": "bb",
			"crm/leads.yaml":    "ccc",
			"README.md":         "d",
		},
	})
	ctx := context.Background()

	flat, err := s.ListObjects(ctx, "models", filestore.ListOptions{})
	require.NoError(t, err)
	var keys []string
	for _, o := range flat {
		keys = append(keys, o.Key)
	}
	assert.Equal(t, []string{"README.md", "crm/", "shop.yaml"}, keys)
	assert.True(t, flat[1].IsDir)

	all, err := s.ListObjects(ctx, "models", filestore.ListOptions{Prefix: "crm/", Recursive: true})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "crm/contacts.yaml", all[0].Key)
	assert.Equal(t, int64(2), all[0].Size)

	limited, err := s.ListObjects(ctx, "models", filestore.ListOptions{Recursive: true, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = s.ListObjects(ctx, "missing", filestore.ListOptions{})
	assert.True(t, errs.IsNotFound(err))
}

func TestGetObject(t *testing.T) {
	s := New(nil)
	s.Put("models", "shop.yaml", []byte("models: []"))

	obj, err := s.GetObject(context.Background(), "models", "shop.yaml")
	require.NoError(t, err)
	defer obj.Close()

	data, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, "models: []", string(data))
	assert.Equal(t, int64(10), obj.Info().Size)

	_, err = s.GetObject(context.Background(), "models", "nope.yaml")
	assert.True(t, errs.IsNotFound(err))
}

func TestCanceledContext(t *testing.T) {
	s := New(map[string]map[string]string{"models": {"a.yaml": ""}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, s.Ping(ctx))
	_, err := s.StatObject(ctx, "models", "a.yaml")
	assert.True(t, errs.IsTimeout(err))
}
