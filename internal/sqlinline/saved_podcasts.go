package sqlinline

const QInsertSavedPodcast = `--sql b071ae3c-dd28-41f9-9803-5e06bba8f155
insert into saved_podcasts (id, owner_id, title, description, script, files, status, created_at, updated_at)
values ($1::uuid, $2::text, $3::text, $4::text, $5::text, $6::jsonb, $7::text, $8::timestamptz, $9::timestamptz);
`

const QSelectSavedPodcastForOwner = `--sql 1a198211-c92e-463c-bccc-e932c0629608
select id::text, owner_id, title, description, script, files, status, created_at, updated_at
from saved_podcasts
where id = $1::uuid
  and owner_id = $2::text;
`

const QListSavedPodcastsByOwner = `--sql 0401c256-3317-40a7-8186-4daf3414a41a
select id::text, owner_id, title, description, script, files, status, created_at, updated_at
from saved_podcasts
where owner_id = $1::text
order by created_at desc
limit $2;
`

const QDeleteSavedPodcast = `--sql 624c8cd6-e6be-427d-ad26-6a314cfd4c7d
delete from saved_podcasts
where id = $1::uuid
  and owner_id = $2::text;
`

const QLiteInsertSavedPodcast = `--sql 2e46087c-0d8b-4fed-8c04-f0fff62a1042
insert into saved_podcasts (id, owner_id, title, description, script, files, status, created_at, updated_at)
values (?, ?, ?, ?, ?, ?, ?, ?, ?);
`

const QLiteSelectSavedPodcastForOwner = `--sql a108adce-da93-4f9a-a769-fd78e9ce7c9b
select id, owner_id, title, description, script, files, status, created_at, updated_at
from saved_podcasts
where id = ? and owner_id = ?;
`

const QLiteListSavedPodcastsByOwner = `--sql bd1979fe-e839-49ce-88a5-3a7958c13045
select id, owner_id, title, description, script, files, status, created_at, updated_at
from saved_podcasts
where owner_id = ?
order by created_at desc
limit ?;
`

const QLiteDeleteSavedPodcast = `--sql cf7248cf-dc93-4741-af5f-133380fd49f3
delete from saved_podcasts where id = ? and owner_id = ?;
`
