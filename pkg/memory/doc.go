// Package memory provides an in-process REST backend that satisfies
// records.Transport. It keeps collections of JSON-like rows behind a mutex
// and answers the url layout produced by Profiles:
//
//	GET    /<collection>             list (start, limit, field equality filters)
//	GET    /<collection>/<id>        read one
//	POST   /<collection>             create, id assigned with uuid
//	POST   /<collection>/<id>        update
//	POST   /<collection>/<id>/delete delete one (DELETE /<collection>/<id> also works)
//	POST   /<collection>/batch       save many, keyed by id or "new:<n>"
//	POST   /<collection>/delete      delete the listed ids
//
// Every stored row carries a server maintained "version" and "updated_at",
// which is how tests observe server data flowing back into records.
package memory
