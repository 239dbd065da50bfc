package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestImportAuthenticators(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	payload := `{
		"adce0002-35bc-c60a-648b-0b25f1f05503": {
			"name": "Google Password Manager",
			"icon_light": "https://example.com/gpm-light.svg",
			"icon_dark": "https://example.com/gpm-dark.svg"
		},
		"08987058-cadc-4b81-b6e1-30de50dcbe96": {
			"name": "Windows Hello",
			"icon_light": "",
			"icon_dark": ""
		}
	}`

	n, err := ImportAuthenticators(ctx, st, strings.NewReader(payload))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	got, err := st.Authenticators().GetAuthenticator(ctx, "adce0002-35bc-c60a-648b-0b25f1f05503")
	require.NoError(t, err)
	require.Equal(t, "Google Password Manager", got.Name)
	require.Equal(t, "https://example.com/gpm-dark.svg", got.IconDark)

	// re-import replaces the catalog
	n, err = ImportAuthenticators(ctx, st, strings.NewReader(`{}`))
	require.NoError(t, err)
	require.Zero(t, n)

	count, err := st.Authenticators().CountAuthenticators(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestImportAuthenticators_BadPayload(t *testing.T) {
	st := newTestStore(t)

	_, err := ImportAuthenticators(context.Background(), st, strings.NewReader("not json"))
	require.Error(t, err)
}
