package store

// GROQ queries against the content store. The startup listing treats $search
// as optional: when it is not defined every startup with a slug matches,
// otherwise title, category, or author name must match.

const startupsQuery = `*[_type == "startup" && defined(slug.current) && (!defined($search) || title match $search || category match $search || author->name match $search)] | order(_createdAt desc) {
	_id,
	title,
	slug,
	_createdAt,
	author -> {_id, name, image, bio},
	views,
	likes,
	description,
	category,
	image
}`

const startupByIDQuery = `*[_type == "startup" && _id == $id][0] {
	_id,
	title,
	slug,
	_createdAt,
	author -> {_id, name, username, image, bio},
	views,
	likes,
	"likedBy": likedBy[]._ref,
	description,
	category,
	image,
	pitch
}`

const startupExistsQuery = `*[_type == "startup" && _id == $id][0]._id`

const startupViewsQuery = `*[_type == "startup" && _id == $id][0] {
	_id,
	views
}`

const likeStateQuery = `*[_type == "startup" && _id == $id][0] {
	likes,
	"likedBy": likedBy[]._ref,
	_rev
}`

const commentsByStartupQuery = `*[_type == "comment" && startup._ref == $startupId] | order(createdAt desc) {
	_id,
	text,
	createdAt,
	author -> {_id, name, username, image}
}`

const authorByIDQuery = `*[_type == "author" && _id == $id][0] {
	_id,
	id,
	name,
	username,
	email,
	image,
	bio
}`

const authorByExternalIDQuery = `*[_type == "author" && id == $id][0] {
	_id,
	id,
	name,
	username,
	email,
	image,
	bio
}`

const authorByEmailQuery = `*[_type == "author" && email == $email][0] {
	_id,
	id,
	name,
	username,
	email,
	image,
	bio,
	passwordHash
}`

const startupsByAuthorQuery = `*[_type == "startup" && author._ref == $id] | order(_createdAt desc) {
	_id,
	title,
	slug,
	_createdAt,
	author -> {_id, name, image, bio},
	views,
	likes,
	description,
	category,
	image
}`

const playlistBySlugQuery = `*[_type == "playlist" && slug.current == $slug][0] {
	_id,
	title,
	slug,
	select[] -> {
		_id,
		title,
		slug,
		_createdAt,
		author -> {_id, name, slug, image, bio},
		views,
		likes,
		description,
		category,
		image,
		pitch
	}
}`
