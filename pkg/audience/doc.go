// Package audience turns a notification target into a set of user ids.
//
// A Target is one of: a single user, a role, a group, an explicit id list,
// or a union of targets. Role and group members come from a Directory,
// the external user directory; the resolver only reads from it.
//
//	ids, err := audience.NewResolver(dir).ResolveAudience(ctx,
//	    audience.Union(audience.Role("teacher"), audience.Group("grade-5b")))
//
// The result is deduplicated and sorted. An empty result is not an error:
// it is logged with ErrAudienceEmpty and returned as an empty slice.
package audience
