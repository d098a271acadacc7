package irdataset

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	DocumentsFile       = "documents.jsonl"
	MergedDocumentsFile = "documents_merged.jsonl"
	QueriesFile         = "queries.jsonl"
	QrelsFile           = "qrels.jsonl"
	QueriesMappingFile  = "queries_mapping.jsonl"
	MetadataFile        = "metadata.yaml"

	QrelFormatNested = "nested"
	QrelFormatFlat   = "flat"
)

// Metadata describes a local dataset directory for the evaluation loader.
type Metadata struct {
	Dataset string        `yaml:"dataset"`
	Files   MetadataFiles `yaml:"files"`
}

type MetadataFiles struct {
	Documents FileSpec `yaml:"documents"`
	Queries   FileSpec `yaml:"queries"`
	Qrels     QrelSpec `yaml:"qrels"`
}

type FileSpec struct {
	Path      string `yaml:"path"`
	IDField   string `yaml:"id_field"`
	TextField string `yaml:"text_field"`
}

type QrelSpec struct {
	Path           string `yaml:"path"`
	QueryIDField   string `yaml:"query_id_field"`
	DocIDField     string `yaml:"doc_id_field"`
	RelevanceField string `yaml:"relevance_field"`
	Format         string `yaml:"format"`
}

// DefaultMetadata fills every field the loader falls back to.
func DefaultMetadata(name string) Metadata {
	return Metadata{
		Dataset: name,
		Files: MetadataFiles{
			Documents: FileSpec{Path: "docs.jsonl", IDField: "doc_id", TextField: "text"},
			Queries:   FileSpec{Path: "queries.jsonl", IDField: "query_id", TextField: "text"},
			Qrels:     QrelSpec{Path: "qrels.jsonl", QueryIDField: "query_id", DocIDField: "doc_id", RelevanceField: "relevance"},
		},
	}
}

func datasetMetadata(name, qrelFormat string) Metadata {
	md := DefaultMetadata(name)
	md.Files.Documents.Path = DocumentsFile
	md.Files.Qrels.Path = QrelsFile
	md.Files.Qrels.Format = qrelFormat
	return md
}

func WriteMetadata(dir string, md Metadata) error {
	out, err := yaml.Marshal(md)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, MetadataFile), out, 0o644)
}

// ReadMetadata loads dir/metadata.yaml over the defaults. A missing file
// yields the defaults named after the directory.
func ReadMetadata(dir string) (Metadata, error) {
	md := DefaultMetadata(filepath.Base(dir))
	raw, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if os.IsNotExist(err) {
		return md, nil
	}
	if err != nil {
		return md, err
	}
	if err := yaml.Unmarshal(raw, &md); err != nil {
		return md, fmt.Errorf("decode %s: %w", MetadataFile, err)
	}
	return md, nil
}
