package sqlinline

// SQLite variants of the media job queries. Timestamps are unix nanoseconds.

const QLiteInsertMediaJob = `--sql 51f51a2d-7f29-4401-93c1-666ad96d1ce7
insert into media_jobs (id, owner_id, kind, status, inputs, artifacts, error_stage, error_message, display_thumbnail_url, created_at, updated_at)
values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`

const QLiteSelectMediaJob = `--sql c6f7709b-7278-4942-942e-3e8db33822d3
select id, owner_id, kind, status, inputs, artifacts, error_stage, error_message, display_thumbnail_url, created_at, updated_at
from media_jobs
where id = ?;
`

const QLiteSelectMediaJobForOwner = `--sql 3ba95a6e-0f8c-49fd-b2f9-f18284a7a6f8
select id, owner_id, kind, status, inputs, artifacts, error_stage, error_message, display_thumbnail_url, created_at, updated_at
from media_jobs
where id = ? and owner_id = ?;
`

const QLiteListMediaJobsByOwner = `--sql 40c9ca54-2fc8-4cb3-971f-45f7983afa3d
select id, owner_id, kind, status, inputs, artifacts, error_stage, error_message, display_thumbnail_url, created_at, updated_at
from media_jobs
where owner_id = ? and (? = '' or kind = ?)
order by created_at desc
limit ?;
`

const QLiteSaveMediaJobArtifacts = `--sql c8929573-c032-4259-a5dd-342cceb42105
update media_jobs
set artifacts = ?, updated_at = ?
where id = ? and status = 'processing';
`

const QLiteMarkMediaJobCompleted = `--sql 89dd8812-8a47-424e-bb79-ca5407146586
update media_jobs
set status = 'completed', artifacts = ?, updated_at = ?
where id = ? and status = 'processing';
`

const QLiteMarkMediaJobFailed = `--sql 6d8d05be-0d4e-442c-8ed8-b0c44a74b82c
update media_jobs
set status = 'failed', artifacts = ?, error_stage = ?, error_message = ?, updated_at = ?
where id = ? and status = 'processing';
`

const QLiteSelectMediaJobStatus = `--sql 4795128c-f99d-4cc9-a2d5-dd2cb11f2946
select status from media_jobs where id = ?;
`

const QLiteSetMediaJobDisplayThumbnail = `--sql 53cded26-7269-4021-b00f-80b3618b859b
update media_jobs
set display_thumbnail_url = ?, updated_at = ?
where id = ? and owner_id = ?;
`

const QLiteDeleteMediaJob = `--sql 6d896c85-08d2-42cc-829c-51200d08d964
delete from media_jobs where id = ? and owner_id = ?;
`

const QLiteListStaleMediaJobs = `--sql 1dac8ba0-1437-4478-8558-6ec03b237426
select id, owner_id, kind, status, inputs, artifacts, error_stage, error_message, display_thumbnail_url, created_at, updated_at
from media_jobs
where status = 'processing' and updated_at < ?
order by updated_at asc
limit ?;
`

const QLiteListFailedMediaJobsBefore = `--sql fc46b30d-9991-4a2f-b485-54febca6fbe7
select id, owner_id, kind, status, inputs, artifacts, error_stage, error_message, display_thumbnail_url, created_at, updated_at
from media_jobs
where status = 'failed' and objects_released = 0 and updated_at < ?
order by updated_at asc
limit ?;
`

const QLiteReleaseFailedMediaJobObjects = `--sql bc5b20c2-69e0-4b55-944d-8e9a4aef78c8
update media_jobs
set artifacts = ?, objects_released = 1
where id = ? and status = 'failed';
`
