package sqlinline

// SchemaPostgres is applied statement by statement by infra.Migrate.
var SchemaPostgres = []string{
	`--sql 1e672c92-bd71-4b3c-9299-d2b2e94fdd9d
create table if not exists media_jobs (
    id uuid primary key,
    owner_id text not null,
    kind text not null check (kind in ('podcast', 'video')),
    status text not null check (status in ('processing', 'completed', 'failed')),
    inputs jsonb not null,
    artifacts jsonb not null default '{}'::jsonb,
    error_stage text,
    error_message text,
    display_thumbnail_url text not null default '',
    objects_released boolean not null default false,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);`,
	`--sql 3d02e338-b1dd-4a6f-9b4d-63ca1d763842
create index if not exists media_jobs_owner_created_idx on media_jobs (owner_id, created_at desc);`,
	`--sql a150748e-1663-4307-9bfd-5a590f15bd07
create index if not exists media_jobs_status_updated_idx on media_jobs (status, updated_at);`,
	`--sql 412a81fe-5076-4d14-808c-482abaf32366
create table if not exists integration_tokens (
    id uuid primary key,
    provider text not null unique,
    token text not null,
    properties jsonb not null default '{}'::jsonb,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);`,
	`--sql 9df1cae5-312b-451a-a87e-ac906df8a623
create table if not exists saved_podcasts (
    id uuid primary key,
    owner_id text not null,
    title text not null,
    description text not null default '',
    script text not null,
    files jsonb not null default '{}'::jsonb,
    status text not null check (status in ('draft', 'published')),
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);`,
	`--sql 6d0d501f-73e6-4346-b669-352ee624bfa4
create index if not exists saved_podcasts_owner_created_idx on saved_podcasts (owner_id, created_at desc);`,
}

// SchemaSQLite mirrors SchemaPostgres for single-node deployments.
var SchemaSQLite = []string{
	`--sql 43c53731-536f-4e03-9287-3eb0cbd33c58
create table if not exists media_jobs (
    id text primary key,
    owner_id text not null,
    kind text not null check (kind in ('podcast', 'video')),
    status text not null check (status in ('processing', 'completed', 'failed')),
    inputs text not null,
    artifacts text not null default '{}',
    error_stage text,
    error_message text,
    display_thumbnail_url text not null default '',
    objects_released integer not null default 0,
    created_at integer not null,
    updated_at integer not null
);`,
	`--sql ec3d9296-bf8e-426e-98af-e34854ab65df
create index if not exists media_jobs_owner_created_idx on media_jobs (owner_id, created_at desc);`,
	`--sql 2f3c1f8e-6a1b-4d53-9a0e-7c1d2b4e5f60
create index if not exists media_jobs_status_updated_idx on media_jobs (status, updated_at);`,
	`--sql 9ff24fc6-6ff9-4770-a8af-aeebe5ea2e25
create table if not exists saved_podcasts (
    id text primary key,
    owner_id text not null,
    title text not null,
    description text not null default '',
    script text not null,
    files text not null default '{}',
    status text not null check (status in ('draft', 'published')),
    created_at integer not null,
    updated_at integer not null
);`,
	`--sql 074c4a92-b6c8-436c-b412-79356407694d
create index if not exists saved_podcasts_owner_created_idx on saved_podcasts (owner_id, created_at desc);`,
}
