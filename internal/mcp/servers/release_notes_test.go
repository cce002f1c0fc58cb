package servers

import (
	"context"
	"errors"
	"testing"

	"github.com/human-glitch/github-releaser/internal/mcp"
	"github.com/human-glitch/github-releaser/internal/notes"
	"github.com/human-glitch/github-releaser/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReleases struct {
	releases map[string]*models.Release
	err      error
}

func (f *fakeReleases) GetReleaseByTag(ctx context.Context, tag string) (*models.Release, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.releases[tag], nil
}

type fakePreviewer struct {
	tag, previous string
}

func (f *fakePreviewer) Preview(ctx context.Context, tag, previous string) (string, error) {
	f.tag, f.previous = tag, previous
	return "## What's Changed in " + tag + "\n", nil
}

const generatedBody = `## What's Changed
* PDE-2 Fix B by @x in https://github.com/acme/widgets/pull/10
* PD-1 Fix A by @y in https://github.com/acme/widgets/pull/9

**Full Changelog**: https://github.com/acme/widgets/compare/v1.0.0...v1.1.0`

func newTestManager(t *testing.T, releases ReleaseReader, previewer NotesPreviewer) *mcp.Manager {
	t.Helper()
	manager := mcp.NewManager()
	server := NewReleaseNotesServer(notes.NewFormatter(notes.DefaultOptions()), releases, previewer)
	require.NoError(t, manager.RegisterServer("releasenotes", server))
	return manager
}

func call(name string, args map[string]interface{}) *models.ToolCall {
	return &models.ToolCall{ID: "call", Function: models.ToolFunction{Name: name, Arguments: args}}
}

var readCtx = &models.MCPContext{
	Repository:  models.Repository{Owner: "acme", Name: "widgets"},
	Permissions: []string{mcp.PermissionGitHubRead},
}

func TestReleaseNotesServerTools(t *testing.T) {
	f := notes.NewFormatter(notes.DefaultOptions())

	formatOnly := NewReleaseNotesServer(f, nil, nil)
	require.Len(t, formatOnly.GetTools(), 1)
	assert.Equal(t, "format", formatOnly.GetTools()[0].Name)

	full := NewReleaseNotesServer(f, &fakeReleases{}, &fakePreviewer{})
	var names []string
	for _, tool := range full.GetTools() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"format", "get_release", "preview"}, names)
	assert.Equal(t, "releasenotes", full.GetInfo().Name)

	assert.Error(t, NewReleaseNotesServer(nil, nil, nil).Initialize(context.Background()))
}

func TestFormatTool(t *testing.T) {
	manager := newTestManager(t, nil, nil)

	result, err := manager.HandleToolCall(context.Background(), call("releasenotes_format", map[string]interface{}{
		"tag":   "v1.1.0",
		"notes": "* Unticketed cleanup by @z in #11\nPD-3 later by @a in #12\nPD-1 earlier by @b in #13\n",
	}), nil)
	require.NoError(t, err)
	require.True(t, result.Success, result.Error)

	want := `## What's Changed in v1.1.0

### PD
* [PD-1](https://onezelis.atlassian.net/browse/PD-1) earlier by @b in #13
* [PD-3](https://onezelis.atlassian.net/browse/PD-3) later by @a in #12

### Other Changes
* Unticketed cleanup by @z in #11
`
	assert.Equal(t, want, result.Content)
	assert.Equal(t, "text", result.Type)
}

func TestGetReleaseTool(t *testing.T) {
	releases := &fakeReleases{releases: map[string]*models.Release{
		"v1.1.0": {ID: 7, TagName: "v1.1.0", Name: "v1.1.0", Body: generatedBody, HTMLURL: "https://github.com/acme/widgets/releases/tag/v1.1.0"},
	}}
	manager := newTestManager(t, releases, nil)

	t.Run("Raw", func(t *testing.T) {
		result, err := manager.HandleToolCall(context.Background(), call("releasenotes_get_release", map[string]interface{}{"tag": "v1.1.0"}), readCtx)
		require.NoError(t, err)
		require.True(t, result.Success, result.Error)

		content := result.Content.(map[string]interface{})
		assert.Equal(t, int64(7), content["id"])
		assert.Equal(t, generatedBody, content["body"])
	})

	t.Run("Formatted", func(t *testing.T) {
		result, err := manager.HandleToolCall(context.Background(), call("releasenotes_get_release", map[string]interface{}{
			"tag":       "v1.1.0",
			"formatted": true,
		}), readCtx)
		require.NoError(t, err)
		require.True(t, result.Success, result.Error)

		body := result.Content.(map[string]interface{})["body"].(string)
		assert.Contains(t, body, "### PD\n* [PD-1](https://onezelis.atlassian.net/browse/PD-1) Fix A by @y in #9")
		assert.Contains(t, body, "**Full Changelog**: https://github.com/acme/widgets/compare/v1.0.0...v1.1.0")
	})

	t.Run("NotFound", func(t *testing.T) {
		result, err := manager.HandleToolCall(context.Background(), call("releasenotes_get_release", map[string]interface{}{"tag": "v9.9.9"}), readCtx)
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "release v9.9.9 not found")
	})

	t.Run("NeedsPermission", func(t *testing.T) {
		result, err := manager.HandleToolCall(context.Background(), call("releasenotes_get_release", map[string]interface{}{"tag": "v1.1.0"}), &models.MCPContext{})
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "insufficient permissions")
	})
}

func TestGetReleaseToolError(t *testing.T) {
	manager := newTestManager(t, &fakeReleases{err: errors.New("rate limited")}, nil)

	result, err := manager.HandleToolCall(context.Background(), call("releasenotes_get_release", map[string]interface{}{"tag": "v1.0.0"}), readCtx)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "rate limited")
}

func TestPreviewTool(t *testing.T) {
	previewer := &fakePreviewer{}
	manager := newTestManager(t, nil, previewer)

	result, err := manager.HandleToolCall(context.Background(), call("releasenotes_preview", map[string]interface{}{
		"tag":          "v1.2.0",
		"previous_tag": "v1.1.0",
	}), readCtx)
	require.NoError(t, err)
	require.True(t, result.Success, result.Error)

	assert.Equal(t, "## What's Changed in v1.2.0\n", result.Content)
	assert.Equal(t, "v1.2.0", previewer.tag)
	assert.Equal(t, "v1.1.0", previewer.previous)
}
