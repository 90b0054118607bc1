package sqlinline

const QSelectCreditBalance = `--sql 665f833d-2c32-4d07-8e32-cec52bb26edf
select balance
from credit_accounts
where owner_id = $1::text;
`

// QDeductCredits performs check-and-deduct as one conditional write.
const QDeductCredits = `--sql 036cc32f-9b9e-448b-a696-81f0c7d776d9
update credit_accounts
set balance = balance - $2::bigint,
    updated_at = now()
where owner_id = $1::text
  and balance >= $2::bigint
returning balance;
`

const QAddCredits = `--sql 9a00fe6f-9886-486a-a770-b607d309554b
insert into credit_accounts (owner_id, balance, updated_at)
values ($1::text, $2::bigint, now())
on conflict (owner_id) do update set
    balance = credit_accounts.balance + excluded.balance,
    updated_at = now()
returning balance;
`

const QInsertCreditTransaction = `--sql 41ccb68e-b2e6-4a60-b75a-a4c437437251
insert into credit_transactions (id, owner_id, amount, description, created_at)
values ($1::uuid, $2::text, $3::bigint, $4::text, $5::timestamptz);
`

const QListCreditTransactions = `--sql 6ae7fbab-6bf9-4e5c-8d45-a3c05595316e
select id::text, owner_id, amount, description, created_at
from credit_transactions
where owner_id = $1::text
order by created_at desc
limit $2::int;
`
