/*
Package jira is a client of the Jira REST API.

A Client is configured by setting its fields:

	client := &jira.Client{
		Server:   u, // https://jira.example.com
		Username: "otl",
		Password: pass,
	}
	issue, err := client.Issue(ctx, "TEST-1", nil)

Every value returned from the server embeds a [Resource]
holding the complete JSON document, its self URL
and its [Kind], derived from the self URL by [KindFor].
Typed structs such as [Issue] and [Comment] expose commonly used fields;
anything else is reachable with [Resource.Lookup] or [Resource.Nested].

Requests which fail transiently, from connection errors or
with status 429, 502, 503 or 504, are retried with a delay
suggested by the server or exponential backoff.
Failed requests are reported as an [*Error].

Projects, issues and comments may also be presented as a virtual read-only filesystem
(using package [io/fs]) with [NewFS].
The filesystem root holds project directories.
Within each project are the project's issues, one directory entry per issue.
The filepaths for issues TEST-1, TEST-2, and WEB-27 would be:

	TEST/1
	TEST/2
	WEB/27

Each issue directory has a file named "issue"
holding a textual representation of the issue and a listing of comments.
For example, TEST/1/issue.

Comments are available as numbered files alongside the issue file.
Comment 69 of issue TEST-420 can be accessed at TEST/420/69.

https://developer.atlassian.com/cloud/jira/platform/rest/v2/
https://jira.atlassian.com/rest/api/2/issue/JRA-9
*/
package jira
