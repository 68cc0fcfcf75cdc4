// Package manager implements the central orchestrator (spec.md §4.5,
// §4.7, §4.8): it wires the pending-task board, the lifecycle drivers,
// the activity stack/task managers, the intent router, the transport
// dispatcher, the process spawner, the package manager client, and the
// process priority list into the single set of inbound service methods
// spec.md §6 tabulates.
package manager

import (
	"fmt"

	memdb "github.com/hashicorp/go-memdb"
	"github.com/open-vela/amd/am/structs"
)

const (
	tableApp      = "app"
	tableActivity = "activity"
	tableService  = "service"
)

// newSchema builds the go-memdb schema for the three primary indices
// the domain stack table calls for: activities by token & by
// unique-name, services by token, apps by pid & by package-name.
// Records are stored and indexed by pointer and mutated in place rather
// than replaced on every write — spec.md §5's single-threaded
// cooperative reactor (every public Manager method holds the same
// mutex for its duration) already gives the isolation nomad's
// copy-on-write state store buys through MVCC, so that machinery isn't
// needed here.
func newSchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableApp: {
				Name: tableApp,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.IntFieldIndex{Field: "Pid"},
					},
					"package": {
						Name:    "package",
						Unique:  false,
						Indexer: &memdb.StringFieldIndex{Field: "PackageName"},
					},
				},
			},
			tableActivity: {
				Name: tableActivity,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Token"},
					},
					"unique_name": {
						Name:    "unique_name",
						Unique:  false,
						Indexer: &memdb.StringFieldIndex{Field: "UniqueName"},
					},
				},
			},
			tableService: {
				Name: tableService,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Token"},
					},
					"name": {
						Name:    "name",
						Unique:  false,
						Indexer: &memdb.StringFieldIndex{Field: "Name"},
					},
				},
			},
		},
	}
}

func (m *Manager) insertApp(app *structs.AppRecord) error {
	txn := m.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert(tableApp, app); err != nil {
		return fmt.Errorf("am: insert app: %w", err)
	}
	txn.Commit()
	return nil
}

func (m *Manager) deleteApp(app *structs.AppRecord) {
	txn := m.db.Txn(true)
	defer txn.Abort()
	txn.Delete(tableApp, app)
	txn.Commit()
}

func (m *Manager) appByPid(pid int) (*structs.AppRecord, bool) {
	txn := m.db.Txn(false)
	raw, err := txn.First(tableApp, "id", pid)
	if err != nil || raw == nil {
		return nil, false
	}
	return raw.(*structs.AppRecord), true
}

// appByPackage returns the first live app found for packageName. When
// isSupportMultiTask allows several concurrent instances this is only
// "an" instance, not "the" instance; callers that need a specific pid
// already have it from the activity/service record they're operating
// on.
func (m *Manager) appByPackage(packageName string) (*structs.AppRecord, bool) {
	txn := m.db.Txn(false)
	it, err := txn.Get(tableApp, "package", packageName)
	if err != nil {
		return nil, false
	}
	raw := it.Next()
	if raw == nil {
		return nil, false
	}
	return raw.(*structs.AppRecord), true
}

func (m *Manager) appsByPackage(packageName string) []*structs.AppRecord {
	txn := m.db.Txn(false)
	it, err := txn.Get(tableApp, "package", packageName)
	if err != nil {
		return nil
	}
	var out []*structs.AppRecord
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, raw.(*structs.AppRecord))
	}
	return out
}

func (m *Manager) listApps() []*structs.AppRecord {
	txn := m.db.Txn(false)
	it, err := txn.Get(tableApp, "id")
	if err != nil {
		return nil
	}
	var out []*structs.AppRecord
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, raw.(*structs.AppRecord))
	}
	return out
}

func (m *Manager) insertActivity(act *structs.ActivityRecord) error {
	txn := m.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert(tableActivity, act); err != nil {
		return fmt.Errorf("am: insert activity: %w", err)
	}
	txn.Commit()
	return nil
}

func (m *Manager) deleteActivity(act *structs.ActivityRecord) {
	txn := m.db.Txn(true)
	defer txn.Abort()
	txn.Delete(tableActivity, act)
	txn.Commit()
}

func (m *Manager) activityByToken(tok structs.Token) *structs.ActivityRecord {
	if tok == "" {
		return nil
	}
	txn := m.db.Txn(false)
	raw, err := txn.First(tableActivity, "id", string(tok))
	if err != nil || raw == nil {
		return nil
	}
	return raw.(*structs.ActivityRecord)
}

func (m *Manager) activitiesByUniqueName(uniqueName string) []*structs.ActivityRecord {
	txn := m.db.Txn(false)
	it, err := txn.Get(tableActivity, "unique_name", uniqueName)
	if err != nil {
		return nil
	}
	var out []*structs.ActivityRecord
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, raw.(*structs.ActivityRecord))
	}
	return out
}

func (m *Manager) listActivities() []*structs.ActivityRecord {
	txn := m.db.Txn(false)
	it, err := txn.Get(tableActivity, "id")
	if err != nil {
		return nil
	}
	var out []*structs.ActivityRecord
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, raw.(*structs.ActivityRecord))
	}
	return out
}

func (m *Manager) insertService(svc *structs.ServiceRecord) error {
	txn := m.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert(tableService, svc); err != nil {
		return fmt.Errorf("am: insert service: %w", err)
	}
	txn.Commit()
	return nil
}

func (m *Manager) deleteService(svc *structs.ServiceRecord) {
	txn := m.db.Txn(true)
	defer txn.Abort()
	txn.Delete(tableService, svc)
	txn.Commit()
}

func (m *Manager) serviceByToken(tok structs.Token) *structs.ServiceRecord {
	if tok == "" {
		return nil
	}
	txn := m.db.Txn(false)
	raw, err := txn.First(tableService, "id", string(tok))
	if err != nil || raw == nil {
		return nil
	}
	return raw.(*structs.ServiceRecord)
}

func (m *Manager) serviceByName(name string) (*structs.ServiceRecord, bool) {
	txn := m.db.Txn(false)
	it, err := txn.Get(tableService, "name", name)
	if err != nil {
		return nil, false
	}
	raw := it.Next()
	if raw == nil {
		return nil, false
	}
	return raw.(*structs.ServiceRecord), true
}

func (m *Manager) listServices() []*structs.ServiceRecord {
	txn := m.db.Txn(false)
	it, err := txn.Get(tableService, "id")
	if err != nil {
		return nil
	}
	var out []*structs.ServiceRecord
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, raw.(*structs.ServiceRecord))
	}
	return out
}
