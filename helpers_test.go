package adminauth

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/stratumhq/adminauth/permission"
)

// memDirectory is an in-memory DirectoryStore with the same atomicity
// contract as the real one: MFA state moves in one step and backup code
// consumption has a single winner.
type memDirectory struct {
	mu          sync.Mutex
	principals  map[string]Principal
	roles       map[string]Role
	assigned    map[string][]string
	backupCodes map[string]map[[32]byte]struct{}
}

func newMemDirectory() *memDirectory {
	return &memDirectory{
		principals:  make(map[string]Principal),
		roles:       make(map[string]Role),
		assigned:    make(map[string][]string),
		backupCodes: make(map[string]map[[32]byte]struct{}),
	}
}

func (d *memDirectory) addPrincipal(p Principal) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.principals[p.ID] = p
}

func (d *memDirectory) addRole(r Role, principalIDs ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.roles[r.Name] = r
	for _, id := range principalIDs {
		d.assigned[id] = append(d.assigned[id], r.Name)
	}
}

func (d *memDirectory) GetPrincipalByEmail(_ context.Context, email string) (Principal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.principals {
		if strings.EqualFold(p.Email, email) {
			return p, nil
		}
	}
	return Principal{}, ErrNotFound
}

func (d *memDirectory) GetPrincipalByID(_ context.Context, id string) (Principal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.principals[id]
	if !ok {
		return Principal{}, ErrNotFound
	}
	return p, nil
}

func (d *memDirectory) GetRolesForPrincipal(_ context.Context, principalID string) ([]Role, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Role
	for _, name := range d.assigned[principalID] {
		out = append(out, d.roles[name])
	}
	return out, nil
}

func (d *memDirectory) GetRolesByName(_ context.Context, tenantID string, names []string) ([]Role, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Role
	for _, name := range names {
		r, ok := d.roles[name]
		if !ok {
			continue
		}
		if r.TenantID != "" && r.TenantID != tenantID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (d *memDirectory) AssignRole(_ context.Context, principalID, roleID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, name := range d.assigned[principalID] {
		if d.roles[name].ID == roleID {
			return ErrConflict
		}
	}
	for name, r := range d.roles {
		if r.ID == roleID {
			d.assigned[principalID] = append(d.assigned[principalID], name)
			return nil
		}
	}
	return ErrNotFound
}

func (d *memDirectory) UpdatePasswordHash(_ context.Context, principalID, newHash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.principals[principalID]
	if !ok {
		return ErrNotFound
	}
	p.PasswordHash = newHash
	d.principals[principalID] = p
	return nil
}

func (d *memDirectory) EnableMFA(_ context.Context, principalID string, secret []byte, codes []BackupCodeRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.principals[principalID]
	if !ok {
		return ErrNotFound
	}
	if p.MFAEnabled {
		return ErrConflict
	}
	p.MFAEnabled = true
	p.MFASecret = secret
	d.principals[principalID] = p
	d.storeCodesLocked(principalID, codes)
	return nil
}

func (d *memDirectory) DisableMFA(_ context.Context, principalID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.principals[principalID]
	if !ok {
		return ErrNotFound
	}
	p.MFAEnabled = false
	p.MFASecret = nil
	d.principals[principalID] = p
	delete(d.backupCodes, principalID)
	return nil
}

func (d *memDirectory) ReplaceBackupCodes(_ context.Context, principalID string, codes []BackupCodeRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.principals[principalID]; !ok {
		return ErrNotFound
	}
	d.storeCodesLocked(principalID, codes)
	return nil
}

func (d *memDirectory) ConsumeBackupCode(_ context.Context, principalID string, codeHash [32]byte) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	set, ok := d.backupCodes[principalID]
	if !ok {
		return false, nil
	}
	if _, present := set[codeHash]; !present {
		return false, nil
	}
	delete(set, codeHash)
	return true, nil
}

func (d *memDirectory) CountBackupCodes(_ context.Context, principalID string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.backupCodes[principalID]), nil
}

func (d *memDirectory) storeCodesLocked(principalID string, codes []BackupCodeRecord) {
	set := make(map[[32]byte]struct{}, len(codes))
	for _, c := range codes {
		set[c.Hash] = struct{}{}
	}
	d.backupCodes[principalID] = set
}

func testHash(t *testing.T, pass string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.Secret = []byte(strings.Repeat("k", 32))
	cfg.Password.UpgradeOnLogin = false
	cfg.Audit.Enabled = false
	return cfg
}

func newTestEngine(t *testing.T, cfg Config, dir *memDirectory) *Engine {
	t.Helper()
	mr := miniredis.RunT(t)
	engine, err := NewEngine(cfg, Dependencies{
		Directory: dir,
		Redis:     redis.NewClient(&redis.Options{Addr: mr.Addr()}),
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

// seedDirectory returns a directory with one tenant admin and one
// platform-level super admin.
func seedDirectory(t *testing.T) *memDirectory {
	t.Helper()
	dir := newMemDirectory()
	dir.addPrincipal(Principal{
		ID: "p-admin", Email: "admin@acme.test", TenantID: "t-1",
		PasswordHash: testHash(t, "correct horse"),
	})
	dir.addPrincipal(Principal{
		ID: "p-root", Email: "root@platform.test",
		PasswordHash: testHash(t, "battery staple"), SuperAdmin: true,
	})
	dir.addRole(Role{
		ID: "r-admin", Name: "admin", TenantID: "t-1",
		Grants: []permission.Pattern{
			permission.MustParsePattern("users:*"),
			permission.MustParsePattern("shops:view"),
		},
	}, "p-admin")
	return dir
}
