package schema

import (
	"fmt"
	"sync"

	"github.com/mathonsunday/agentic-ui-lab-sub001/errors"
)

// Transform converts payload data from one schema version to the next.
type Transform func(data any) (any, error)

// migration is one registered hop in a type's version chain.
type migration struct {
	from      string
	to        string
	transform Transform
}

// Migrator upgrades (or downgrades) VersionedValue payloads along chains
// of registered per-type migrations. Extensions are preserved across
// every hop.
type Migrator struct {
	mu         sync.RWMutex
	migrations map[string][]migration // type name -> registered hops
}

// NewMigrator creates an empty migrator.
func NewMigrator() *Migrator {
	return &Migrator{migrations: make(map[string][]migration)}
}

// Register adds a migration hop for the named type.
func (m *Migrator) Register(typ, from, to string, transform Transform) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.migrations[typ] = append(m.migrations[typ], migration{from: from, to: to, transform: transform})
}

// Migrate returns value converted to targetVersion. Already-at-target is
// a no-op. The chain of hops is discovered by breadth-first search over
// the registered migrations, so multi-step paths (1.0.0 -> 1.1.0 ->
// 1.2.0) resolve without a direct edge.
func (m *Migrator) Migrate(typ string, value VersionedValue, targetVersion string) (VersionedValue, error) {
	if value.Version == targetVersion {
		return value, nil
	}

	path, err := m.findPath(typ, value.Version, targetVersion)
	if err != nil {
		return VersionedValue{}, err
	}

	out := value
	for _, hop := range path {
		data, err := hop.transform(out.Data)
		if err != nil {
			return VersionedValue{}, errors.WrapInvalid(err, "Migrator", "Migrate",
				fmt.Sprintf("transform %s %s->%s", typ, hop.from, hop.to))
		}
		// Extensions ride along untouched on every hop
		out = VersionedValue{
			Version:    hop.to,
			Timestamp:  out.Timestamp,
			Data:       data,
			Extensions: out.Extensions,
		}
	}
	return out, nil
}

// findPath BFS-walks registered hops from "from" to "to".
func (m *Migrator) findPath(typ, from, to string) ([]migration, error) {
	m.mu.RLock()
	hops := m.migrations[typ]
	m.mu.RUnlock()

	if len(hops) == 0 {
		return nil, errors.WrapInvalid(errors.ErrNoMigrationPath, "Migrator", "findPath",
			fmt.Sprintf("no migrations registered for type %q", typ))
	}

	type node struct {
		version string
		path    []migration
	}

	visited := map[string]bool{from: true}
	queue := []node{{version: from}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, hop := range hops {
			if hop.from != current.version || visited[hop.to] {
				continue
			}
			path := append(append([]migration{}, current.path...), hop)
			if hop.to == to {
				return path, nil
			}
			visited[hop.to] = true
			queue = append(queue, node{version: hop.to, path: path})
		}
	}

	return nil, errors.WrapInvalid(errors.ErrNoMigrationPath, "Migrator", "findPath",
		fmt.Sprintf("%s: no path from %s to %s", typ, from, to))
}
