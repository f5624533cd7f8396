// internal/app/bootstrap/appconfig.go
package bootstrap

import (
	"fmt"
	"strings"

	"github.com/dalemusser/mild/config"
	"github.com/dalemusser/mild/internal/app/catalog"
)

// AppConfig holds the service's own settings, resolved from the app keys.
type AppConfig struct {
	MongoUsername     string
	MongoPassword     string
	MongoCluster      string
	MongoDatabases    []catalog.DatabaseID
	MongoClustersFile string

	ServiceName string

	// Clusters maps a database to its cluster host. Databases missing from
	// the map use MongoCluster.
	Clusters map[catalog.DatabaseID]string
}

// appKeys are registered as flags and read from MILD_* env vars and config files.
var appKeys = []config.AppKey{
	{Name: "mongo_username", Default: "", Desc: "MongoDB username"},
	{Name: "mongo_password", Default: "", Desc: "MongoDB password"},
	{Name: "mongo_cluster", Default: "", Desc: "Default MongoDB cluster host"},
	{Name: "mongo_databases", Default: []string{string(catalog.Production)}, Desc: "Databases to register: production, development, test"},
	{Name: "mongo_clusters_file", Default: "clusters.yaml", Desc: "Optional YAML file mapping databases to cluster hosts"},
	{Name: "service_name", Default: "mild", Desc: "OS service name"},
}

// ClusterFor returns the cluster host id should connect to.
func (c AppConfig) ClusterFor(id catalog.DatabaseID) string {
	if host, ok := c.Clusters[id]; ok {
		return host
	}
	return c.MongoCluster
}

// newAppConfig validates the raw app key values and loads the cluster file.
func newAppConfig(vals config.AppConfigValues) (AppConfig, error) {
	cfg := AppConfig{
		MongoUsername:     vals.String("mongo_username"),
		MongoPassword:     vals.String("mongo_password"),
		MongoCluster:      strings.TrimSpace(vals.String("mongo_cluster")),
		MongoClustersFile: strings.TrimSpace(vals.String("mongo_clusters_file")),
		ServiceName:       vals.String("service_name"),
	}

	seen := make(map[catalog.DatabaseID]bool)
	for _, raw := range vals.StringSlice("mongo_databases") {
		id, ok := catalog.ParseDatabaseID(raw)
		if !ok {
			return cfg, fmt.Errorf("mongo_databases: unknown database %q", raw)
		}
		if !seen[id] {
			seen[id] = true
			cfg.MongoDatabases = append(cfg.MongoDatabases, id)
		}
	}
	if len(cfg.MongoDatabases) == 0 {
		return cfg, fmt.Errorf("mongo_databases: at least one database is required")
	}

	clusters, err := loadClusterMap(cfg.MongoClustersFile)
	if err != nil {
		return cfg, err
	}
	cfg.Clusters = clusters

	var missing []string
	if cfg.MongoUsername == "" {
		missing = append(missing, "MILD_MONGO_USERNAME")
	}
	if cfg.MongoPassword == "" {
		missing = append(missing, "MILD_MONGO_PASSWORD")
	}
	for _, id := range cfg.MongoDatabases {
		if cfg.ClusterFor(id) == "" {
			missing = append(missing, "cluster for "+string(id)+" (MILD_MONGO_CLUSTER or "+cfg.MongoClustersFile+")")
		}
	}
	if len(missing) > 0 {
		return cfg, fmt.Errorf("app configuration missing: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}
