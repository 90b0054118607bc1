package sqlinline

const QListProviderKeys = `--sql 0b7e4d91-3c2a-4f58-9e61-5a8d2f7c1b34
select provider, api_key
from provider_keys
order by provider;
`

const QUpsertProviderKey = `--sql c41f8a27-6d9e-4b03-8f25-e1a7b6c9d852
insert into provider_keys (provider, api_key, updated_at)
values ($1, $2, now())
on conflict (provider) do update
    set api_key = excluded.api_key,
        updated_at = excluded.updated_at;
`

const QDeleteProviderKey = `--sql 7a93e2c5-1f6b-4d8a-b047-3e5c9d1f6a28
delete from provider_keys
where provider = $1;
`
