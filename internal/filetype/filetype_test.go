package filetype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGlob(t *testing.T) {
	matcher := Glob("*.min.js", "*.pb.go")
	assert.True(t, matcher("dist/app.min.js"))
	assert.True(t, matcher("internal/pb/message.pb.go"))
	assert.False(t, matcher("internal/app/app.go"))
	assert.False(t, matcher("anything"))

	assert.False(t, Glob()("main.go"))
}

func TestLanguageAllowlist(t *testing.T) {
	goOnly := LanguageAllowlist("Go")
	assert.True(t, goOnly("cmd/app/main.go"))
	assert.False(t, goOnly("scripts/build.py"))
	assert.False(t, goOnly("README.md"))
}

func TestDefaultExcludes(t *testing.T) {
	assert.True(t, DefaultExcludes("vendor/github.com/x/y.go"))
	assert.True(t, DefaultExcludes("node_modules/left-pad/index.js"))
	assert.True(t, DefaultExcludes("package-lock.json"))
	assert.False(t, DefaultExcludes("internal/vendorish/file.go"))
}
