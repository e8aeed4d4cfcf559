package store

const schema = `
CREATE TABLE IF NOT EXISTS backends (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    kind TEXT NOT NULL DEFAULT '',
    instance_id TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    UNIQUE(instance_id)
);

CREATE TABLE IF NOT EXISTS resources (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    resource_id TEXT NOT NULL,
    backend_id TEXT NOT NULL REFERENCES backends(id) ON DELETE CASCADE,
    UNIQUE(backend_id, resource_id)
);

CREATE TABLE IF NOT EXISTS releases (
    id TEXT PRIMARY KEY,
    app TEXT NOT NULL,
    version TEXT NOT NULL,
    installed INTEGER NOT NULL DEFAULT 0,
    scopes TEXT,
    colour TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    released_at INTEGER NOT NULL,
    UNIQUE(app, version)
);

CREATE TABLE IF NOT EXISTS flavours (
    id TEXT PRIMARY KEY,
    release_id TEXT NOT NULL REFERENCES releases(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    image TEXT NOT NULL,
    container_type TEXT NOT NULL DEFAULT 'DOCKER',
    manifest TEXT,
    requirements TEXT,
    position INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS definitions (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    hash TEXT NOT NULL UNIQUE,
    description TEXT
);

CREATE TABLE IF NOT EXISTS flavour_definitions (
    flavour_id TEXT NOT NULL REFERENCES flavours(id) ON DELETE CASCADE,
    definition_id TEXT NOT NULL REFERENCES definitions(id) ON DELETE CASCADE,
    PRIMARY KEY (flavour_id, definition_id)
);

CREATE TABLE IF NOT EXISTS deployments (
    id TEXT PRIMARY KEY,
    flavour_id TEXT NOT NULL REFERENCES flavours(id),
    backend_id TEXT NOT NULL REFERENCES backends(id) ON DELETE CASCADE,
    local_id TEXT NOT NULL,
    last_pulled INTEGER,
    secret_params TEXT,
    created_at INTEGER NOT NULL,
    UNIQUE(backend_id, local_id)
);

CREATE TABLE IF NOT EXISTS pods (
    id TEXT PRIMARY KEY,
    deployment_id TEXT NOT NULL REFERENCES deployments(id) ON DELETE CASCADE,
    backend_id TEXT NOT NULL REFERENCES backends(id) ON DELETE CASCADE,
    pod_id TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'PENDING',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    UNIQUE(backend_id, pod_id)
);

CREATE TABLE IF NOT EXISTS log_dumps (
    id TEXT PRIMARY KEY,
    pod_id TEXT NOT NULL REFERENCES pods(id) ON DELETE CASCADE,
    logs TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS github_repos (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    owner TEXT NOT NULL,
    repo TEXT NOT NULL,
    branch TEXT NOT NULL,
    UNIQUE(owner, repo, branch)
);

CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY
);
`
