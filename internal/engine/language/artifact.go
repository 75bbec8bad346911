// # internal/engine/language/artifact.go
package language

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"fern/internal/core/errors"
)

// Manifest describes a compiled grammar artifact on disk. The grammar
// compiler is an external toolchain; from this engine's point of view an
// artifact is an opaque table blob plus the metadata needed to trust it.
type Manifest struct {
	Language     string `toml:"language"`
	ABIVersion   int    `toml:"abi_version"`
	TablesPath   string `toml:"tables_path"`
	TablesSHA256 string `toml:"tables_sha256"`
	Source       string `toml:"source"`
	ApprovedDate string `toml:"approved_date"`
}

// LoadManifest reads an artifact manifest from a TOML file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "malformed artifact manifest")
	}
	return &m, nil
}

// Save writes the manifest next to its tables blob.
func (m *Manifest) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(m)
}

// LoadArtifact loads the Language described by the manifest at
// manifestPath. It fails fast, before any parse can happen, if the
// artifact's ABI version does not match ABIVersion or the blob's checksum
// does not match the manifest.
func LoadArtifact(manifestPath string) (*Language, error) {
	m, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, manifestPath)
	}

	if m.ABIVersion != ABIVersion {
		return nil, errors.New(errors.CodeVersionMismatch,
			fmt.Sprintf("artifact %q was compiled against ABI %d, engine expects %d",
				m.Language, m.ABIVersion, ABIVersion))
	}

	tablesPath := m.TablesPath
	if !filepath.IsAbs(tablesPath) {
		tablesPath = filepath.Join(filepath.Dir(manifestPath), tablesPath)
	}

	data, err := os.ReadFile(tablesPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNotFound, "artifact tables blob missing")
	}

	if m.TablesSHA256 != "" {
		sum := sha256.Sum256(data)
		if hex.EncodeToString(sum[:]) != m.TablesSHA256 {
			return nil, errors.New(errors.CodeChecksum,
				fmt.Sprintf("tables blob for %q does not match manifest checksum", m.Language))
		}
	}

	lang, err := DecodeTables(data)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxLanguage, m.Language)
	}
	if lang.Version != m.ABIVersion {
		return nil, errors.New(errors.CodeVersionMismatch,
			fmt.Sprintf("tables blob for %q declares ABI %d, manifest says %d",
				m.Language, lang.Version, m.ABIVersion))
	}
	return lang, nil
}

// WriteArtifact serializes lang into dir as <name>.json plus
// <name>.toml, producing the same layout LoadArtifact consumes. Used by
// grammar tooling and tests.
func WriteArtifact(lang *Language, dir string) (string, error) {
	data, err := EncodeTables(lang)
	if err != nil {
		return "", err
	}
	tablesPath := filepath.Join(dir, lang.Name+".json")
	if err := os.WriteFile(tablesPath, data, 0o644); err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	m := &Manifest{
		Language:     lang.Name,
		ABIVersion:   lang.Version,
		TablesPath:   lang.Name + ".json",
		TablesSHA256: hex.EncodeToString(sum[:]),
	}
	manifestPath := filepath.Join(dir, lang.Name+".toml")
	if err := m.Save(manifestPath); err != nil {
		return "", err
	}
	return manifestPath, nil
}

// EncodeTables serializes a Language's tables to the artifact blob format.
func EncodeTables(lang *Language) ([]byte, error) {
	return json.Marshal(lang)
}

// DecodeTables deserializes an artifact blob into a usable Language.
func DecodeTables(data []byte) (*Language, error) {
	var lang Language
	if err := json.Unmarshal(data, &lang); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "malformed tables blob")
	}
	lang.Finish()
	return &lang, nil
}

// CalculateSHA256 hashes a file on disk, hex-encoded.
func CalculateSHA256(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
