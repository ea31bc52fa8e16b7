package sqlinline

const QInsertMediaJob = `--sql 576342b7-c2aa-499e-a9e2-ad086c6c2743
insert into media_jobs (id, owner_id, kind, status, inputs, artifacts, error_stage, error_message, display_thumbnail_url, created_at, updated_at)
values ($1::uuid, $2::text, $3::text, $4::text, $5::jsonb, $6::jsonb, $7, $8, $9::text, $10::timestamptz, $11::timestamptz);
`

const QSelectMediaJob = `--sql bfcf7a2a-adc0-4a0f-a44d-43d0636a7620
select id::text, owner_id, kind, status, inputs, artifacts, error_stage, error_message, display_thumbnail_url, created_at, updated_at
from media_jobs
where id = $1::uuid;
`

const QSelectMediaJobForOwner = `--sql 92c6a275-8610-4fe9-b935-4b690f011bf8
select id::text, owner_id, kind, status, inputs, artifacts, error_stage, error_message, display_thumbnail_url, created_at, updated_at
from media_jobs
where id = $1::uuid
  and owner_id = $2::text;
`

const QListMediaJobsByOwner = `--sql ab208a91-d41e-493a-8b63-ec05a7c84a18
select id::text, owner_id, kind, status, inputs, artifacts, error_stage, error_message, display_thumbnail_url, created_at, updated_at
from media_jobs
where owner_id = $1::text
  and ($2::text = '' or kind = $2::text)
order by created_at desc
limit $3;
`

const QSaveMediaJobArtifacts = `--sql 8b8c7b48-2877-442a-986b-ea768dc6c91a
update media_jobs
set artifacts = $2::jsonb,
    updated_at = $3::timestamptz
where id = $1::uuid
  and status = 'processing';
`

const QMarkMediaJobCompleted = `--sql 91045f41-6c07-4621-bde6-8e9386bd0877
update media_jobs
set status = 'completed',
    artifacts = $2::jsonb,
    updated_at = $3::timestamptz
where id = $1::uuid
  and status = 'processing';
`

const QMarkMediaJobFailed = `--sql 07f67eff-304a-4094-bf70-707a058317c4
update media_jobs
set status = 'failed',
    artifacts = $2::jsonb,
    error_stage = $3::text,
    error_message = $4::text,
    updated_at = $5::timestamptz
where id = $1::uuid
  and status = 'processing';
`

const QSelectMediaJobStatus = `--sql 50a1d419-be90-4d48-9c2d-0b7a5ed985da
select status
from media_jobs
where id = $1::uuid;
`

const QSetMediaJobDisplayThumbnail = `--sql d0846570-c0e3-4bcb-8e80-339fb599acb3
update media_jobs
set display_thumbnail_url = $3::text,
    updated_at = now()
where id = $1::uuid
  and owner_id = $2::text;
`

const QDeleteMediaJob = `--sql 351840b8-7877-4e20-af81-289df0f405c2
delete from media_jobs
where id = $1::uuid
  and owner_id = $2::text;
`

const QListStaleMediaJobs = `--sql 6d8e1421-1dde-4980-8cc3-bd072bdebc7c
select id::text, owner_id, kind, status, inputs, artifacts, error_stage, error_message, display_thumbnail_url, created_at, updated_at
from media_jobs
where status = 'processing'
  and updated_at < $1::timestamptz
order by updated_at asc
limit $2;
`

const QListFailedMediaJobsBefore = `--sql 0c55a722-3eb9-40dc-8a4d-28161c8183b0
select id::text, owner_id, kind, status, inputs, artifacts, error_stage, error_message, display_thumbnail_url, created_at, updated_at
from media_jobs
where status = 'failed'
  and not objects_released
  and updated_at < $1::timestamptz
order by updated_at asc
limit $2;
`

const QReleaseFailedMediaJobObjects = `--sql 22766276-beb9-497a-9f6a-2788e08118ac
update media_jobs
set artifacts = $2::jsonb,
    objects_released = true
where id = $1::uuid
  and status = 'failed';
`
