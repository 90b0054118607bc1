package sqlinline

const QInsertJob = `--sql 2876163d-318e-40ab-a634-1b418ac8e80a
insert into generation_jobs (id, owner_id, kind, status, progress, message, error_message, created_at, updated_at)
values ($1::uuid, $2::text, $3::text, $4::text, 0, $5::text, '', now(), now())
returning created_at, updated_at;
`

// QUpdateJobProgress only touches non-terminal rows; an empty result means
// the job is unknown or already finished.
const QUpdateJobProgress = `--sql 7f7c3fec-324a-4224-8c43-0e80c86d596c
update generation_jobs
set status = $2::text,
    progress = $3::int,
    message = $4::text,
    updated_at = now()
where id = $1::uuid
  and status not in ('completed', 'failed')
returning id;
`

const QFailJob = `--sql 9702bc35-c7cd-4576-aa19-08903ec4b511
update generation_jobs
set status = 'failed',
    error_message = $2::text,
    message = $2::text,
    updated_at = now()
where id = $1::uuid
  and status not in ('completed', 'failed')
returning id;
`

const QSelectJob = `--sql 11684b52-efa6-449e-b5f7-989bdf24fa63
select id::text, owner_id, kind, status, progress, message, error_message, created_at, updated_at
from generation_jobs
where id = $1::uuid;
`
