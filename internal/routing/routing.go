package routing

import (
    "fmt"
    "os"
    "strings"

    "github.com/BurntSushi/toml"
)

// Table maps department labels to SIP destinations for call transfer.
// Lookups are case-insensitive on the department label.
type Table struct {
    departments map[string]Route
}

type Route struct {
    Destination string `toml:"destination"`
}

type fileFormat struct {
    Departments map[string]Route `toml:"departments"`
}

// Default returns the built-in table with the single human-agent route.
func Default() *Table {
    return &Table{departments: map[string]Route{
        "agente": {Destination: "sip:5652917934@127.0.0.1:49999"},
    }}
}

// Load reads a routing table from a TOML file, e.g.:
//
//	[departments.Agente]
//	destination = "sip:5652917934@127.0.0.1:49999"
func Load(path string) (*Table, error) {
    b, err := os.ReadFile(path)
    if err != nil {
        return nil, fmt.Errorf("routing: read %s: %w", path, err)
    }
    var f fileFormat
    if err := toml.Unmarshal(b, &f); err != nil {
        return nil, fmt.Errorf("routing: parse %s: %w", path, err)
    }
    if len(f.Departments) == 0 {
        return nil, fmt.Errorf("routing: %s defines no departments", path)
    }
    t := &Table{departments: make(map[string]Route, len(f.Departments))}
    for name, r := range f.Departments {
        if strings.TrimSpace(r.Destination) == "" {
            return nil, fmt.Errorf("routing: department %q has empty destination", name)
        }
        t.departments[strings.ToLower(name)] = r
    }
    return t, nil
}

// LoadOrDefault loads path when non-empty, otherwise the built-in table.
func LoadOrDefault(path string) (*Table, error) {
    if path == "" {
        return Default(), nil
    }
    return Load(path)
}

// Destination resolves a department to its transfer target.
func (t *Table) Destination(department string) (string, bool) {
    r, ok := t.departments[strings.ToLower(strings.TrimSpace(department))]
    if !ok {
        return "", false
    }
    return r.Destination, true
}

// Departments lists the known labels, for diagnostics.
func (t *Table) Departments() []string {
    out := make([]string, 0, len(t.departments))
    for name := range t.departments {
        out = append(out, name)
    }
    return out
}
