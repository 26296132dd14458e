package meta

import (
	"fmt"
	"strings"
)

// PersistenceState tracks an object relative to the database.
type PersistenceState int

const (
	Transient PersistenceState = iota
	New
	Committed
	Modified
	Deleted
)

func (s PersistenceState) String() string {
	switch s {
	case Transient:
		return "transient"
	case New:
		return "new"
	case Committed:
		return "committed"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ObjectID identifies a persistent object by entity and primary key values.
type ObjectID struct {
	Entity  string
	Columns []string
	Values  []any
}

// IsTemporary reports whether the id carries no key yet.
func (id ObjectID) IsTemporary() bool { return len(id.Values) == 0 }

// Value returns the key value for a column.
func (id ObjectID) Value(column string) (any, bool) {
	for i, c := range id.Columns {
		if c == column {
			return id.Values[i], true
		}
	}
	return nil, false
}

// String renders a stable key usable for equality checks and map keys.
func (id ObjectID) String() string {
	var sb strings.Builder
	sb.WriteString(id.Entity)
	sb.WriteByte('<')
	for i, c := range id.Columns {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%s=%v", c, id.Values[i])
	}
	sb.WriteByte('>')
	return sb.String()
}

// Persistent is implemented by objects whose state is tracked for commit.
type Persistent interface {
	ObjectID() ObjectID
	SetObjectID(ObjectID)
	PersistenceState() PersistenceState
	SetPersistenceState(PersistenceState)
}

// DataObject is a map-backed Persistent used when an entity has no factory.
type DataObject struct {
	entity string
	id     ObjectID
	state  PersistenceState
	values map[string]any
	// snapshot holds committed values of properties changed since the last commit.
	snapshot map[string]any
}

// NewDataObject creates a transient object of the named entity.
func NewDataObject(entity string) *DataObject {
	return &DataObject{
		entity: entity,
		id:     ObjectID{Entity: entity},
		values: make(map[string]any),
	}
}

// EntityName returns the entity name.
func (d *DataObject) EntityName() string { return d.entity }

// Get returns a property value.
func (d *DataObject) Get(name string) any { return d.values[name] }

// Set assigns a property, moving a committed object to modified.
func (d *DataObject) Set(name string, value any) {
	if d.state == Committed || d.state == Modified {
		if _, seen := d.snapshot[name]; !seen {
			if d.snapshot == nil {
				d.snapshot = make(map[string]any)
			}
			d.snapshot[name] = d.values[name]
		}
		d.state = Modified
	}
	d.values[name] = value
}

// Changes returns the properties modified since the last commit.
func (d *DataObject) Changes() map[string]any {
	out := make(map[string]any, len(d.snapshot))
	for k := range d.snapshot {
		out[k] = d.values[k]
	}
	return out
}

// Values returns a copy of every property.
func (d *DataObject) Values() map[string]any {
	out := make(map[string]any, len(d.values))
	for k, v := range d.values {
		out[k] = v
	}
	return out
}

// ObjectID implements Persistent.
func (d *DataObject) ObjectID() ObjectID { return d.id }

// SetObjectID implements Persistent.
func (d *DataObject) SetObjectID(id ObjectID) { d.id = id }

// PersistenceState implements Persistent.
func (d *DataObject) PersistenceState() PersistenceState { return d.state }

// SetPersistenceState implements Persistent. Moving to committed clears the
// change snapshot.
func (d *DataObject) SetPersistenceState(s PersistenceState) {
	d.state = s
	if s == Committed {
		d.snapshot = nil
	}
}

func (d *DataObject) String() string {
	return fmt.Sprintf("%s[%s]", d.id, d.state)
}
