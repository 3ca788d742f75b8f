package sqlinline

const QEnsurePredictionsTable = `--sql 3b1f0f0e-6a4c-4d55-9a0e-2f2b7c9d1a41
create table if not exists ancestor_predictions (
    id           uuid primary key,
    user_id      text not null,
    input_photos jsonb not null default '{}'::jsonb,
    result_url   text not null,
    created_at   timestamptz not null default now()
);
create index if not exists ancestor_predictions_user_created_idx
    on ancestor_predictions (user_id, created_at desc);
`

const QInsertPrediction = `--sql 9d7c2a64-52f1-4b6e-8f0a-6c1e9b3d2f57
insert into ancestor_predictions (id, user_id, input_photos, result_url, created_at)
values ($1::uuid, $2::text, coalesce($3::jsonb, '{}'::jsonb), $4::text, $5::timestamptz);
`

const QListPredictionsByUser = `--sql c4e8a1b2-7d3f-4a9e-b6c5-1f2e3d4c5b6a
select id::text, user_id, input_photos, result_url, created_at
from ancestor_predictions
where user_id = $1::text
order by created_at desc
limit $2::int;
`
