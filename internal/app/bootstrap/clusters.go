// internal/app/bootstrap/clusters.go
package bootstrap

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/dalemusser/mild/internal/app/catalog"
	"gopkg.in/yaml.v3"
)

// clusterFile is the on-disk layout of mongo_clusters_file:
//
//	clusters:
//	  production: cluster0.example.net
//	  test: cluster1.example.net
type clusterFile struct {
	Clusters map[string]string `yaml:"clusters"`
}

// loadClusterMap reads the cluster map at path. A missing file or an empty
// path yields an empty map. Unknown databases and blank hosts are errors.
func loadClusterMap(path string) (map[catalog.DatabaseID]string, error) {
	out := make(map[catalog.DatabaseID]string)
	if path == "" {
		return out, nil
	}

	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cluster map: %w", err)
	}
	return parseClusterMap(b, path)
}

func parseClusterMap(b []byte, path string) (map[catalog.DatabaseID]string, error) {
	var f clusterFile
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse cluster map %s: %w", path, err)
	}

	out := make(map[catalog.DatabaseID]string, len(f.Clusters))
	for name, host := range f.Clusters {
		id, ok := catalog.ParseDatabaseID(name)
		if !ok {
			return nil, fmt.Errorf("cluster map %s: unknown database %q", path, name)
		}
		host = strings.TrimSpace(host)
		if host == "" {
			return nil, fmt.Errorf("cluster map %s: blank cluster for %q", path, name)
		}
		out[id] = host
	}
	return out, nil
}
