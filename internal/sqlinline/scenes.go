package sqlinline

const QListScenes = `--sql c23fb436-41cb-491a-b938-9f2edd618d9f
select id::text, project_id, owner_id, sequence, title, narration, visual_prompt, image_url, audio_url, created_at, updated_at
from scenes
where project_id = $1::text
  and owner_id = $2::text
order by sequence asc;
`

const QDeleteProjectScenes = `--sql 8733a539-477e-4d03-a03c-84687c87780f
delete from scenes
where project_id = $1::text
  and owner_id = $2::text;
`

const QInsertScene = `--sql c9ee5bc4-0ccb-4e4a-9ebb-4ee7f6606c26
insert into scenes (id, project_id, owner_id, sequence, title, narration, visual_prompt, image_url, audio_url, created_at, updated_at)
values ($1::uuid, $2::text, $3::text, $4::int, $5::text, $6::text, $7::text, '', '', now(), now());
`

const QSetSceneImage = `--sql 1355857e-2097-4c24-b5bd-04126606ee17
update scenes
set image_url = $2::text,
    updated_at = now()
where id = $1::uuid;
`

const QSetSceneAudio = `--sql bbaa9fc5-1cf1-4c47-ad29-1033c94a5fd4
update scenes
set audio_url = $2::text,
    updated_at = now()
where id = $1::uuid;
`
