package sqlinline

const QSelectPost = `--sql 9b41c6de-20f4-4c8a-9d3e-5b7a1f02c8e4
select
    id,
    campaign_id,
    content,
    coalesce(images, '[]'::jsonb),
    coalesce(video_url, ''),
    status,
    created_at,
    updated_at
from posts
where id = $1::bigint;
`

const QUpdatePostImages = `--sql 4e7a9f12-8c3b-4d56-b2a1-6f0d8e9c1a37
update posts
set
    images = $2::jsonb,
    primary_image_url = $3::text,
    status = $4::text,
    updated_at = now()
where id = $1::bigint;
`

const QUpdatePostVideo = `--sql c2d85b70-1e4f-49a3-8b6d-3a9f7e0c5d12
update posts
set
    video_url = $2::text,
    status = $3::text,
    updated_at = now()
where id = $1::bigint;
`

const QUpdatePostStatus = `--sql 7a3e0c91-5d2b-4f68-a4c7-8e1b9d6f2a05
update posts
set
    status = $2::text,
    updated_at = now()
where id = $1::bigint;
`
