// Package issue implements the newsletter issue lifecycle.
//
// An issue moves DRAFT -> REVIEWED -> PUBLISHED through explicit operator
// calls only; publishing always requires a prior review. The service also
// owns section content, provenance links, and the markdown export used for
// both human review and delivery.
//
// Repository implementations live in repository/postgres/ and repository/memory/.
package issue
