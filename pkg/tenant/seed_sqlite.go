package tenant

// sqliteSeedSQL creates the seven core tables for a relational-file
// (SQLite) tenant, plus their self-describing Model/Field metadata rows
// (status='system'; spec.md §4.1 step 2), mirroring
// migrations/tenant/0001_seed.up.sql's Postgres statements. golang-migrate
// has no maintained modernc.org/sqlite driver (its sqlite3 driver
// requires cgo via mattn/go-sqlite3, which this module avoids — see
// DESIGN.md), so this statement set is applied directly through the
// dbadapter.Adapter rather than through internal/platform's migrate.go.
// Column types are SQLite's type affinities rather than Postgres's
// native uuid/jsonb/timestamptz/array types; access_* sets are stored
// as JSON-encoded TEXT instead of a native array type, since SQLite has
// none.
const sqliteSeedSQL = `
CREATE TABLE IF NOT EXISTS models (
    id          TEXT PRIMARY KEY,
    model_name  TEXT NOT NULL UNIQUE,
    status      TEXT NOT NULL DEFAULT 'pending',
    sudo        INTEGER NOT NULL DEFAULT 0,
    frozen      INTEGER NOT NULL DEFAULT 0,
    immutable   INTEGER NOT NULL DEFAULT 0,
    external    INTEGER NOT NULL DEFAULT 0,
    description TEXT,
    created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    updated_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    trashed_at  TEXT,
    deleted_at  TEXT,
    access_read TEXT NOT NULL DEFAULT '[]',
    access_edit TEXT NOT NULL DEFAULT '[]',
    access_full TEXT NOT NULL DEFAULT '[]',
    access_deny TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS fields (
    id                    TEXT PRIMARY KEY,
    model_name            TEXT NOT NULL,
    field_name            TEXT NOT NULL,
    type                  TEXT NOT NULL,
    required              INTEGER NOT NULL DEFAULT 0,
    default_value         TEXT,
    description           TEXT,
    minimum               REAL,
    maximum               REAL,
    pattern               TEXT,
    enum_values           TEXT,
    is_array              INTEGER NOT NULL DEFAULT 0,
    is_unique             INTEGER NOT NULL DEFAULT 0,
    is_index              INTEGER NOT NULL DEFAULT 0,
    searchable            INTEGER NOT NULL DEFAULT 0,
    immutable             INTEGER NOT NULL DEFAULT 0,
    sudo                  INTEGER NOT NULL DEFAULT 0,
    tracked               INTEGER NOT NULL DEFAULT 0,
    transform             TEXT,
    relationship_type     TEXT,
    related_model         TEXT,
    related_field         TEXT,
    relationship_name     TEXT,
    cascade_delete        INTEGER NOT NULL DEFAULT 0,
    required_relationship INTEGER NOT NULL DEFAULT 0,
    created_at            TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    updated_at            TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    trashed_at            TEXT,
    deleted_at            TEXT,
    access_read           TEXT NOT NULL DEFAULT '[]',
    access_edit           TEXT NOT NULL DEFAULT '[]',
    access_full           TEXT NOT NULL DEFAULT '[]',
    access_deny           TEXT NOT NULL DEFAULT '[]',
    UNIQUE (model_name, field_name)
);

CREATE TABLE IF NOT EXISTS users (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    auth        TEXT NOT NULL UNIQUE,
    access      TEXT NOT NULL DEFAULT 'read',
    created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    updated_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    trashed_at  TEXT,
    deleted_at  TEXT,
    access_read TEXT NOT NULL DEFAULT '[]',
    access_edit TEXT NOT NULL DEFAULT '[]',
    access_full TEXT NOT NULL DEFAULT '[]',
    access_deny TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS filters (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL UNIQUE,
    model_name  TEXT NOT NULL,
    select_list TEXT,
    where_doc   TEXT,
    order_doc   TEXT,
    limit_val   INTEGER,
    offset_val  INTEGER,
    created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    updated_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    trashed_at  TEXT,
    deleted_at  TEXT,
    access_read TEXT NOT NULL DEFAULT '[]',
    access_edit TEXT NOT NULL DEFAULT '[]',
    access_full TEXT NOT NULL DEFAULT '[]',
    access_deny TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS credentials (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL REFERENCES users(id),
    kind        TEXT NOT NULL,
    secret_hash TEXT NOT NULL,
    created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    updated_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    trashed_at  TEXT,
    deleted_at  TEXT,
    access_read TEXT NOT NULL DEFAULT '[]',
    access_edit TEXT NOT NULL DEFAULT '[]',
    access_full TEXT NOT NULL DEFAULT '[]',
    access_deny TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS tracked (
    change_id   INTEGER PRIMARY KEY AUTOINCREMENT,
    model_name  TEXT NOT NULL,
    record_id   TEXT NOT NULL,
    operation   TEXT NOT NULL,
    changes     TEXT NOT NULL DEFAULT '{}',
    created_by  TEXT,
    created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    metadata    TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS fs (
    id          TEXT PRIMARY KEY,
    path        TEXT NOT NULL UNIQUE,
    model_name  TEXT,
    record_id   TEXT,
    parent_path TEXT,
    is_dir      INTEGER NOT NULL DEFAULT 0,
    created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    updated_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
    trashed_at  TEXT,
    deleted_at  TEXT,
    access_read TEXT NOT NULL DEFAULT '[]',
    access_edit TEXT NOT NULL DEFAULT '[]',
    access_full TEXT NOT NULL DEFAULT '[]',
    access_deny TEXT NOT NULL DEFAULT '[]'
);

INSERT OR IGNORE INTO models (id, model_name, status, description) VALUES
    ('10000000-0000-0000-0000-000000000001', 'models',      'system', 'Model metadata'),
    ('10000000-0000-0000-0000-000000000002', 'fields',      'system', 'Field metadata'),
    ('10000000-0000-0000-0000-000000000003', 'users',       'system', 'Tenant users'),
    ('10000000-0000-0000-0000-000000000004', 'filters',     'system', 'Saved filter documents'),
    ('10000000-0000-0000-0000-000000000005', 'credentials', 'system', 'User credential secrets'),
    ('10000000-0000-0000-0000-000000000006', 'tracked',     'system', 'Per-record change history'),
    ('10000000-0000-0000-0000-000000000007', 'fs',          'system', 'Filesystem-style record tree');

INSERT OR IGNORE INTO fields (id, model_name, field_name, type, required, searchable, is_unique, description) VALUES
    ('20000000-0000-0000-0000-000000000001', 'models', 'model_name',  'text',    1, 1, 1, 'Model identifier'),
    ('20000000-0000-0000-0000-000000000002', 'models', 'status',      'text',    1, 0, 0, 'Lifecycle state: pending, active, system'),
    ('20000000-0000-0000-0000-000000000003', 'models', 'sudo',        'boolean', 0, 0, 0, 'Restricts writes to root'),
    ('20000000-0000-0000-0000-000000000004', 'models', 'frozen',      'boolean', 0, 0, 0, 'Blocks further field changes'),
    ('20000000-0000-0000-0000-000000000005', 'models', 'immutable',   'boolean', 0, 0, 0, 'Blocks record updates'),
    ('20000000-0000-0000-0000-000000000006', 'models', 'external',    'boolean', 0, 0, 0, 'Backed by a table this module did not create'),
    ('20000000-0000-0000-0000-000000000007', 'models', 'description', 'text',    0, 0, 0, 'Human-readable description'),

    ('20000000-0000-0000-0000-000000000010', 'fields', 'model_name',            'text',    1, 1, 0, 'Owning Model'),
    ('20000000-0000-0000-0000-000000000011', 'fields', 'field_name',            'text',    1, 1, 0, 'Column name'),
    ('20000000-0000-0000-0000-000000000012', 'fields', 'type',                  'text',    1, 0, 0, 'Wire field type'),
    ('20000000-0000-0000-0000-000000000013', 'fields', 'required',              'boolean', 0, 0, 0, 'NOT NULL at the record level'),
    ('20000000-0000-0000-0000-000000000014', 'fields', 'default_value',         'text',    0, 0, 0, 'Default applied when absent'),
    ('20000000-0000-0000-0000-000000000015', 'fields', 'description',           'text',    0, 0, 0, 'Human-readable description'),
    ('20000000-0000-0000-0000-000000000016', 'fields', 'minimum',               'numeric', 0, 0, 0, 'Minimum numeric value'),
    ('20000000-0000-0000-0000-000000000017', 'fields', 'maximum',               'numeric', 0, 0, 0, 'Maximum numeric value'),
    ('20000000-0000-0000-0000-000000000018', 'fields', 'pattern',               'text',    0, 0, 0, 'Regex constraint'),
    ('20000000-0000-0000-0000-000000000019', 'fields', 'enum_values',           'jsonb',   0, 0, 0, 'Allowed value set'),
    ('20000000-0000-0000-0000-000000000020', 'fields', 'is_array',              'boolean', 0, 0, 0, 'Column holds an array of type'),
    ('20000000-0000-0000-0000-000000000021', 'fields', 'is_unique',             'boolean', 0, 0, 0, 'Unique constraint'),
    ('20000000-0000-0000-0000-000000000022', 'fields', 'is_index',              'boolean', 0, 0, 0, 'Indexed column'),
    ('20000000-0000-0000-0000-000000000023', 'fields', 'searchable',            'boolean', 0, 0, 0, 'Eligible for full-text search'),
    ('20000000-0000-0000-0000-000000000024', 'fields', 'immutable',             'boolean', 0, 0, 0, 'Rejected on update after create'),
    ('20000000-0000-0000-0000-000000000025', 'fields', 'sudo',                  'boolean', 0, 0, 0, 'Restricts writes to root'),
    ('20000000-0000-0000-0000-000000000026', 'fields', 'tracked',               'boolean', 0, 0, 0, 'Emits a Change row on write'),
    ('20000000-0000-0000-0000-000000000027', 'fields', 'transform',             'text',    0, 0, 0, 'Normalization applied before validation'),
    ('20000000-0000-0000-0000-000000000028', 'fields', 'relationship_type',     'text',    0, 0, 0, 'Relationship kind'),
    ('20000000-0000-0000-0000-000000000029', 'fields', 'related_model',         'text',    0, 0, 0, 'Target Model of a relationship'),
    ('20000000-0000-0000-0000-000000000030', 'fields', 'related_field',         'text',    0, 0, 0, 'Target field of a relationship'),
    ('20000000-0000-0000-0000-000000000031', 'fields', 'relationship_name',     'text',    0, 0, 0, 'Relationship alias'),
    ('20000000-0000-0000-0000-000000000032', 'fields', 'cascade_delete',        'boolean', 0, 0, 0, 'Cascades deletes through the relationship'),
    ('20000000-0000-0000-0000-000000000033', 'fields', 'required_relationship', 'boolean', 0, 0, 0, 'Relationship target must exist'),

    ('20000000-0000-0000-0000-000000000040', 'users', 'name',   'text', 1, 1, 0, 'Display name'),
    ('20000000-0000-0000-0000-000000000041', 'users', 'auth',   'text', 1, 1, 1, 'Authentication identifier'),
    ('20000000-0000-0000-0000-000000000042', 'users', 'access', 'text', 1, 0, 0, 'Access role: root, full, edit, read, deny'),

    ('20000000-0000-0000-0000-000000000050', 'filters', 'name',       'text',    1, 1, 1, 'Saved filter name'),
    ('20000000-0000-0000-0000-000000000051', 'filters', 'model_name', 'text',    1, 0, 0, 'Target Model'),
    ('20000000-0000-0000-0000-000000000052', 'filters', 'select_list','jsonb',   0, 0, 0, 'Select projection'),
    ('20000000-0000-0000-0000-000000000053', 'filters', 'where_doc',  'jsonb',   0, 0, 0, 'Where clause document'),
    ('20000000-0000-0000-0000-000000000054', 'filters', 'order_doc',  'jsonb',   0, 0, 0, 'Order clause document'),
    ('20000000-0000-0000-0000-000000000055', 'filters', 'limit_val',  'integer', 0, 0, 0, 'Row limit'),
    ('20000000-0000-0000-0000-000000000056', 'filters', 'offset_val', 'integer', 0, 0, 0, 'Row offset'),

    ('20000000-0000-0000-0000-000000000060', 'credentials', 'user_id',     'uuid', 1, 0, 0, 'Owning user'),
    ('20000000-0000-0000-0000-000000000061', 'credentials', 'kind',        'text', 1, 0, 0, 'Credential kind'),
    ('20000000-0000-0000-0000-000000000062', 'credentials', 'secret_hash', 'text', 1, 0, 0, 'Hashed secret'),

    ('20000000-0000-0000-0000-000000000070', 'tracked', 'change_id',  'bigserial', 1, 0, 1, 'Sequential change id'),
    ('20000000-0000-0000-0000-000000000071', 'tracked', 'model_name', 'text',      1, 1, 0, 'Changed Model'),
    ('20000000-0000-0000-0000-000000000072', 'tracked', 'record_id',  'uuid',      1, 1, 0, 'Changed record'),
    ('20000000-0000-0000-0000-000000000073', 'tracked', 'operation',  'text',      1, 0, 0, 'create, update, or delete'),
    ('20000000-0000-0000-0000-000000000074', 'tracked', 'changes',    'jsonb',     0, 0, 0, 'Field-level diff'),
    ('20000000-0000-0000-0000-000000000075', 'tracked', 'created_by', 'uuid',      0, 0, 0, 'Acting user'),
    ('20000000-0000-0000-0000-000000000076', 'tracked', 'created_at', 'timestamp', 1, 0, 0, 'When the change was recorded'),
    ('20000000-0000-0000-0000-000000000077', 'tracked', 'metadata',   'jsonb',     0, 0, 0, 'Additional change context'),

    ('20000000-0000-0000-0000-000000000080', 'fs', 'path',        'text',    1, 1, 1, 'Full path'),
    ('20000000-0000-0000-0000-000000000081', 'fs', 'model_name',  'text',    0, 1, 0, 'Record''s backing Model, when this node is a record leaf'),
    ('20000000-0000-0000-0000-000000000082', 'fs', 'record_id',   'uuid',    0, 0, 0, 'Backing record, when this node is a record leaf'),
    ('20000000-0000-0000-0000-000000000083', 'fs', 'parent_path', 'text',    0, 0, 0, 'Parent directory path'),
    ('20000000-0000-0000-0000-000000000084', 'fs', 'is_dir',      'boolean', 1, 0, 0, 'True when this node is a directory');
`
