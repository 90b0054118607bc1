package sqlinline

const QSelectCacheEntry = `--sql 9ee52a10-fc1a-4b05-ae60-cc5e2c9753eb
select fingerprint, kind, artifact_url, model, hit_count, last_used_at, created_at
from asset_cache
where fingerprint = $1::text;
`

const QUpsertCacheEntry = `--sql 84d3c57c-326b-46c8-84c3-19a1a2ebc978
insert into asset_cache (fingerprint, kind, artifact_url, model, hit_count, last_used_at, created_at)
values ($1::text, $2::text, $3::text, $4::text, 0, now(), now())
on conflict (fingerprint) do update set
    kind = excluded.kind,
    artifact_url = excluded.artifact_url,
    model = excluded.model,
    last_used_at = now();
`

// QTouchCacheEntry updates metadata only; artifact_url is never written here.
const QTouchCacheEntry = `--sql 8bee49af-55ad-460a-9e1f-f58bd6a20cb8
update asset_cache
set hit_count = hit_count + 1,
    last_used_at = $2::timestamptz
where fingerprint = $1::text;
`
