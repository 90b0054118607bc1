package sqlinline

const QInsertUsageRecord = `--sql 4049a626-c002-4729-a4d6-2777e8821a6e
insert into usage_records (id, owner_id, job_id, kind, provider, model, cost_micros, input_units, output_units, items, created_at)
values ($1::uuid, $2::text, nullif($3::text, ''), $4::text, $5::text, $6::text, $7::bigint, $8::bigint, $9::bigint, $10::bigint, $11::timestamptz);
`

const QAddOwnerSpend = `--sql e1da8ee1-bbb0-4715-b9fd-77854997d5ae
insert into user_settings (owner_id, total_spend_micros, updated_at)
values ($1::text, $2::bigint, now())
on conflict (owner_id) do update set
    total_spend_micros = user_settings.total_spend_micros + excluded.total_spend_micros,
    updated_at = now();
`

const QSelectOwnerSpend = `--sql 3b74e410-0710-4925-92b8-5b41b152d0b3
select total_spend_micros
from user_settings
where owner_id = $1::text;
`

const QListUsageRecords = `--sql ac2823f5-843b-4791-bf73-5f117fcd355c
select id::text, owner_id, coalesce(job_id, ''), kind, provider, model, cost_micros, input_units, output_units, items, created_at
from usage_records
where owner_id = $1::text
order by created_at desc
limit $2::int;
`
