package registrar

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordingSourceRootRegistrar_RecordsCalls(t *testing.T) {
	var r RecordingSourceRootRegistrar
	require.NoError(t, r.AddCompileSourceRoot(context.Background(), RootMain, "/gen/main"))
	require.NoError(t, r.EmbedListing(context.Background(), RootMain, []string{"/gen/main/a.java"}))

	require.Len(t, r.Roots, 1)
	assert.Equal(t, RootMain, r.Roots[0].Kind)
	assert.Equal(t, "/gen/main", r.Roots[0].Dir)
	require.Len(t, r.Embedded, 1)
	assert.Equal(t, []string{"/gen/main/a.java"}, r.Embedded[0].Files)
}

func TestNoopRegistrars_NeverError(t *testing.T) {
	var sr NoopSourceRootRegistrar
	var dr NoopDescriptorAttachmentRegistrar
	assert.NoError(t, sr.AddCompileSourceRoot(context.Background(), RootTest, "/gen/test"))
	assert.NoError(t, sr.EmbedListing(context.Background(), RootTest, nil))
	assert.NoError(t, dr.Attach(context.Background(), "/out/all.desc", "", ""))
}
