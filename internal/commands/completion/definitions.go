// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package completion

import (
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tombee/ruline/internal/tracing/export"
)

const (
	maxDefinitionFiles = 100
	maxSearchDepth     = 2

	definitionPattern = "**/*.{yaml,yml,json}"
)

// SafeCompletionWrapper runs fn, returning an empty completion list if it
// panics or returns nil.
func SafeCompletionWrapper(fn func() ([]string, cobra.ShellCompDirective)) (results []string, directive cobra.ShellCompDirective) {
	defer func() {
		if r := recover(); r != nil {
			results, directive = []string{}, cobra.ShellCompDirectiveNoFileComp
		}
	}()

	results, directive = fn()
	if results == nil {
		return []string{}, cobra.ShellCompDirectiveNoFileComp
	}
	return results, directive
}

// CompleteDefinitionFiles completes workflow definition paths. It lists
// YAML and JSON files at most two directories below the working directory
// that declare a top-level components key, newest first. Without any it
// falls back to the shell's file completion.
func CompleteDefinitionFiles(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		paths := discoverDefinitions(os.DirFS("."), toComplete)
		if len(paths) == 0 {
			return []string{}, cobra.ShellCompDirectiveDefault
		}
		return paths, cobra.ShellCompDirectiveNoFileComp
	})
}

// CompleteTraceExporters completes values for the --trace flag.
func CompleteTraceExporters(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		return []string{
			export.Console + "\tPrint spans to stderr",
			export.OTLP + "\tExport spans over OTLP/gRPC",
			export.OTLPHTTP + "\tExport spans over OTLP/HTTP",
		}, cobra.ShellCompDirectiveNoFileComp
	})
}

type definitionFile struct {
	path    string
	modTime int64
}

func discoverDefinitions(fsys fs.FS, prefix string) []string {
	var files []definitionFile
	_ = doublestar.GlobWalk(fsys, definitionPattern, func(p string, d fs.DirEntry) error {
		if strings.Count(p, "/") > maxSearchDepth || isHidden(p) || !strings.HasPrefix(p, prefix) {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 || !isDefinitionFile(fsys, p) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, definitionFile{path: p, modTime: info.ModTime().UnixNano()})
		return nil
	}, doublestar.WithFilesOnly(), doublestar.WithNoFollow())

	slices.SortStableFunc(files, func(a, b definitionFile) int {
		switch {
		case a.modTime > b.modTime:
			return -1
		case a.modTime < b.modTime:
			return 1
		}
		return strings.Compare(a.path, b.path)
	})
	if len(files) > maxDefinitionFiles {
		files = files[:maxDefinitionFiles]
	}

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths
}

func isHidden(p string) bool {
	for _, part := range strings.Split(path.Dir(p), "/") {
		if strings.HasPrefix(part, ".") && part != "." {
			return true
		}
	}
	return false
}

// isDefinitionFile reports whether p parses as a mapping with a
// components key. yaml.v3 also reads JSON documents.
func isDefinitionFile(fsys fs.FS, p string) bool {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return false
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return false
	}
	_, ok := doc["components"]
	return ok
}
