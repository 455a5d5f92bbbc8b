package manifest_test

import (
	"testing"

	"stevedore/internal/manifest"
)

const testURI = "file:///project/Cargo.toml"

// TestUpdateCollectsDependencySections verifies that facts are collected from
// every dependencies-flavored section and nowhere else.
func TestUpdateCollectsDependencySections(t *testing.T) {
	source := `[package]
name = "demo"
version = "9.9.9"

[dependencies]
serde = "1.0"

[dev-dependencies]
anyhow = "1"

[build-dependencies]
cc = "1.0.79"

[target.'cfg(unix)'.dependencies]
libc = "0.2"

[features]
default = []
`

	tracker := manifest.NewTracker()
	deps := tracker.Update(testURI, source)

	want := []string{"serde", "anyhow", "cc", "libc"}
	if len(deps) != len(want) {
		t.Fatalf("expected %d dependencies, got %d: %#v", len(want), len(deps), deps)
	}
	for i, name := range want {
		if deps[i].CrateName() != name {
			t.Errorf("expected dependency %d to be %q, got %q", i, name, deps[i].CrateName())
		}
	}
}

// TestUpdatePackageVersionInert verifies that the package's own version key
// produces no fact.
func TestUpdatePackageVersionInert(t *testing.T) {
	source := `[package]
name = "demo"
version = "9.9.9"
`

	tracker := manifest.NewTracker()
	if deps := tracker.Update(testURI, source); len(deps) != 0 {
		t.Errorf("expected no dependencies, got %#v", deps)
	}
}

// TestUpdateNamedDependencySection verifies that a [dependencies.<crate>]
// table yields exactly one fact carrying the crate's name.
func TestUpdateNamedDependencySection(t *testing.T) {
	source := `[dependencies.foo]
version = "1"
features = ["full"]
default-features = false
`

	tracker := manifest.NewTracker()
	deps := tracker.Update(testURI, source)

	if len(deps) != 1 {
		t.Fatalf("expected exactly one dependency, got %d: %#v", len(deps), deps)
	}

	dep, ok := deps[0].(manifest.VersionedDependency)
	if !ok {
		t.Fatalf("expected a versioned dependency, got %T", deps[0])
	}
	if dep.Name != "foo" {
		t.Errorf("expected name %q, got %q", "foo", dep.Name)
	}
	if _, ok := dep.Version.(manifest.CompleteVersion); !ok {
		t.Errorf("expected a complete version, got %T", dep.Version)
	}
}

// TestUpdateAbsoluteLineNumbers verifies that ranges and partial facts carry
// document-absolute line numbers.
func TestUpdateAbsoluteLineNumbers(t *testing.T) {
	source := `[dependencies]
serde = "1.0"

tokio = "1.38"
uui`

	tracker := manifest.NewTracker()
	deps := tracker.Update(testURI, source)

	if len(deps) != 3 {
		t.Fatalf("expected 3 dependencies, got %d", len(deps))
	}

	first, ok := deps[0].(manifest.VersionedDependency)
	if !ok {
		t.Fatalf("expected a versioned dependency, got %T", deps[0])
	}
	if line := first.Version.Range().Start.Line; line != 1 {
		t.Errorf("expected serde on line 1, got %d", line)
	}

	second, ok := deps[1].(manifest.VersionedDependency)
	if !ok {
		t.Fatalf("expected a versioned dependency, got %T", deps[1])
	}
	if line := second.Version.Range().Start.Line; line != 3 {
		t.Errorf("expected tokio on line 3, got %d", line)
	}

	third, ok := deps[2].(manifest.PartialDependency)
	if !ok {
		t.Fatalf("expected a partial dependency, got %T", deps[2])
	}
	if third.Line != 4 {
		t.Errorf("expected partial name on line 4, got %d", third.Line)
	}
}

// TestUpdateReplacesPreviousFacts verifies that each update replaces the
// stored facts wholesale.
func TestUpdateReplacesPreviousFacts(t *testing.T) {
	tracker := manifest.NewTracker()

	tracker.Update(testURI, "[dependencies]\nserde = \"1.0\"\nanyhow = \"1\"\n")
	tracker.Update(testURI, "[dependencies]\ntokio = \"1.38\"\n")

	deps, ok := tracker.Get(testURI)
	if !ok {
		t.Fatal("expected facts for the manifest")
	}
	if len(deps) != 1 {
		t.Fatalf("expected 1 dependency after replacement, got %d", len(deps))
	}
	if deps[0].CrateName() != "tokio" {
		t.Errorf("expected %q, got %q", "tokio", deps[0].CrateName())
	}
}

// TestGetUnknownManifest verifies the miss path.
func TestGetUnknownManifest(t *testing.T) {
	tracker := manifest.NewTracker()

	if _, ok := tracker.Get("file:///missing/Cargo.toml"); ok {
		t.Error("expected no facts for an unknown manifest")
	}
}

// TestUpdateUnrecognizedSectionEndsDependencies verifies that any later
// section header stops fact collection.
func TestUpdateUnrecognizedSectionEndsDependencies(t *testing.T) {
	source := `[dependencies]
serde = "1.0"

[lints]
rust = "deny"
`

	tracker := manifest.NewTracker()
	deps := tracker.Update(testURI, source)

	if len(deps) != 1 {
		t.Fatalf("expected 1 dependency, got %d: %#v", len(deps), deps)
	}
	if deps[0].CrateName() != "serde" {
		t.Errorf("expected %q, got %q", "serde", deps[0].CrateName())
	}
}
