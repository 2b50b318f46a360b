package shared

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestActorFromContext(t *testing.T) {
	require.Equal(t, "system", ActorFromContext(context.Background()))
	ctx := ContextWithActor(context.Background(), "u-42")
	require.Equal(t, "u-42", ActorFromContext(ctx))
}

func TestPageFromQuery(t *testing.T) {
	p := PageFromQuery(url.Values{"page": {"3"}, "perPage": {"20"}})
	require.Equal(t, Page{Number: 3, Size: 20}, p)
	require.Equal(t, 40, p.Offset())

	p = PageFromQuery(url.Values{"page": {"-1"}, "perPage": {"abc"}})
	require.Equal(t, Page{Number: 1, Size: DefaultPageSize}, p)
	require.Zero(t, p.Offset())

	require.Equal(t, MaxPageSize, PageFromQuery(url.Values{"perPage": {"10000"}}).Size)
}

func TestAuditLogValidate(t *testing.T) {
	require.Error(t, AuditLog{Action: "voucher.create"}.Validate())
	require.NoError(t, AuditLog{Action: "voucher.create", Entity: "voucher", EntityID: "x"}.Validate())
}
