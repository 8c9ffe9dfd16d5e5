package conduit

import "encoding/json"

// PHID is a Phabricator object handle, e.g. "PHID-TASK-abc123".
type PHID = string

// Cursor is the opaque continuation marker returned by *.search endpoints.
// After and Before are forwarded unchanged on the next request.
type Cursor struct {
	Limit  int    `json:"limit"            yaml:"limit"`
	After  string `json:"after,omitempty"  yaml:"after,omitempty"`
	Before string `json:"before,omitempty" yaml:"before,omitempty"`
}

// HasMore reports whether another page is available.
func (c Cursor) HasMore() bool {
	return c.After != ""
}

// SearchResult is the common envelope of *.search endpoints. Truncated,
// Continuation, and Suggestion are populated when the token-budget shaper
// trimmed Data.
type SearchResult[T any] struct {
	Data   []T    `json:"data"   yaml:"data"`
	Cursor Cursor `json:"cursor" yaml:"cursor"`

	Truncated    bool   `json:"truncated,omitempty"    yaml:"truncated,omitempty"`
	Continuation int    `json:"continuation,omitempty" yaml:"continuation,omitempty"`
	Suggestion   string `json:"suggestion,omitempty"   yaml:"suggestion,omitempty"`
}

// Transaction is a named, typed change applied atomically by an edit
// endpoint as part of an ordered list.
type Transaction struct {
	Type  string `json:"type"  yaml:"type"`
	Value any    `json:"value" yaml:"value"`
}

// PolicyRef holds view/edit policy identifiers ("public", "users", or a PHID).
type PolicyRef struct {
	View string `json:"view,omitempty" yaml:"view,omitempty"`
	Edit string `json:"edit,omitempty" yaml:"edit,omitempty"`
}

// Task is a Maniphest task as returned by maniphest.search.
type Task struct {
	ID          int                        `json:"id"                    yaml:"id"`
	Type        string                     `json:"type"                  yaml:"type"`
	PHID        PHID                       `json:"phid"                  yaml:"phid"`
	Fields      TaskFields                 `json:"fields"                yaml:"fields"`
	Attachments map[string]json.RawMessage `json:"attachments,omitempty" yaml:"attachments,omitempty"`
}

// TaskFields holds the field block of a task search result.
type TaskFields struct {
	Name         string         `json:"name"                   yaml:"name"`
	Description  RemarkupField  `json:"description"            yaml:"description"`
	AuthorPHID   PHID           `json:"authorPHID"             yaml:"authorPHID"`
	OwnerPHID    PHID           `json:"ownerPHID,omitempty"    yaml:"ownerPHID,omitempty"`
	Status       StatusField    `json:"status"                 yaml:"status"`
	Priority     PriorityField  `json:"priority"               yaml:"priority"`
	Points       *float64       `json:"points,omitempty"       yaml:"points,omitempty"`
	Subtype      string         `json:"subtype,omitempty"      yaml:"subtype,omitempty"`
	CloserPHID   PHID           `json:"closerPHID,omitempty"   yaml:"closerPHID,omitempty"`
	DateCreated  int64          `json:"dateCreated"            yaml:"dateCreated"`
	DateModified int64          `json:"dateModified"           yaml:"dateModified"`
	DateClosed   *int64         `json:"dateClosed,omitempty"   yaml:"dateClosed,omitempty"`
	Policy       map[string]any `json:"policy,omitempty"       yaml:"policy,omitempty"`
}

// RemarkupField is a rich-text field carried as raw remarkup.
type RemarkupField struct {
	Raw string `json:"raw" yaml:"raw"`
}

// StatusField is a status value with its display name.
type StatusField struct {
	Value  string `json:"value"            yaml:"value"`
	Name   string `json:"name"             yaml:"name"`
	Closed bool   `json:"closed,omitempty" yaml:"closed,omitempty"`
	Color  string `json:"color,omitempty"  yaml:"color,omitempty"`
}

// PriorityField is a task priority with its display name.
type PriorityField struct {
	Value int    `json:"value"           yaml:"value"`
	Name  string `json:"name"            yaml:"name"`
	Color string `json:"color,omitempty" yaml:"color,omitempty"`
}

// TaskCreateRequest is the input to Maniphest task creation.
type TaskCreateRequest struct {
	Title        string         `json:"title"                  yaml:"title"`
	Description  string         `json:"description,omitempty"  yaml:"description,omitempty"`
	OwnerPHID    PHID           `json:"ownerPHID,omitempty"    yaml:"ownerPHID,omitempty"`
	CCPHIDs      []PHID         `json:"ccPHIDs,omitempty"      yaml:"ccPHIDs,omitempty"`
	Priority     *int           `json:"priority,omitempty"     yaml:"priority,omitempty"`
	ProjectPHIDs []PHID         `json:"projectPHIDs,omitempty" yaml:"projectPHIDs,omitempty"`
	ViewPolicy   string         `json:"viewPolicy,omitempty"   yaml:"viewPolicy,omitempty"`
	EditPolicy   string         `json:"editPolicy,omitempty"   yaml:"editPolicy,omitempty"`
	Auxiliary    map[string]any `json:"auxiliary,omitempty"    yaml:"auxiliary,omitempty"`
}

// Revision is a Differential revision as returned by
// differential.revision.search.
type Revision struct {
	ID          int                        `json:"id"                    yaml:"id"`
	Type        string                     `json:"type"                  yaml:"type"`
	PHID        PHID                       `json:"phid"                  yaml:"phid"`
	Fields      RevisionFields             `json:"fields"                yaml:"fields"`
	Attachments map[string]json.RawMessage `json:"attachments,omitempty" yaml:"attachments,omitempty"`
}

// RevisionFields holds the field block of a revision search result.
type RevisionFields struct {
	Title          string         `json:"title"                    yaml:"title"`
	URI            string         `json:"uri,omitempty"            yaml:"uri,omitempty"`
	AuthorPHID     PHID           `json:"authorPHID"               yaml:"authorPHID"`
	RepositoryPHID PHID           `json:"repositoryPHID,omitempty" yaml:"repositoryPHID,omitempty"`
	DiffPHID       PHID           `json:"diffPHID,omitempty"       yaml:"diffPHID,omitempty"`
	Summary        string         `json:"summary,omitempty"        yaml:"summary,omitempty"`
	TestPlan       string         `json:"testPlan,omitempty"       yaml:"testPlan,omitempty"`
	IsDraft        bool           `json:"isDraft,omitempty"        yaml:"isDraft,omitempty"`
	Status         RevisionStatus `json:"status"                   yaml:"status"`
	DateCreated    int64          `json:"dateCreated"              yaml:"dateCreated"`
	DateModified   int64          `json:"dateModified"             yaml:"dateModified"`
}

// RevisionStatus is the review state of a revision.
type RevisionStatus struct {
	Value  string `json:"value"            yaml:"value"`
	Name   string `json:"name"             yaml:"name"`
	Closed bool   `json:"closed,omitempty" yaml:"closed,omitempty"`
}

// Diff is a Differential diff as returned by differential.diff.search.
type Diff struct {
	ID     int        `json:"id"     yaml:"id"`
	Type   string     `json:"type"   yaml:"type"`
	PHID   PHID       `json:"phid"   yaml:"phid"`
	Fields DiffFields `json:"fields" yaml:"fields"`
}

// DiffFields holds the field block of a diff search result.
type DiffFields struct {
	RevisionPHID   PHID   `json:"revisionPHID"             yaml:"revisionPHID"`
	AuthorPHID     PHID   `json:"authorPHID"               yaml:"authorPHID"`
	RepositoryPHID PHID   `json:"repositoryPHID,omitempty" yaml:"repositoryPHID,omitempty"`
	DateCreated    int64  `json:"dateCreated"              yaml:"dateCreated"`
	DateModified   int64  `json:"dateModified"             yaml:"dateModified"`
	BaseRevision   string `json:"baseRevision,omitempty"   yaml:"baseRevision,omitempty"`
}

// Repository is a Diffusion repository as returned by
// diffusion.repository.search.
type Repository struct {
	ID          int                        `json:"id"                    yaml:"id"`
	Type        string                     `json:"type"                  yaml:"type"`
	PHID        PHID                       `json:"phid"                  yaml:"phid"`
	Fields      RepositoryFields           `json:"fields"                yaml:"fields"`
	Attachments map[string]json.RawMessage `json:"attachments,omitempty" yaml:"attachments,omitempty"`
}

// RepositoryFields holds the field block of a repository search result.
type RepositoryFields struct {
	Name          string      `json:"name"                    yaml:"name"`
	VCS           string      `json:"vcs"                     yaml:"vcs"`
	Callsign      string      `json:"callsign,omitempty"      yaml:"callsign,omitempty"`
	ShortName     string      `json:"shortName,omitempty"     yaml:"shortName,omitempty"`
	Status        string      `json:"status"                  yaml:"status"`
	IsImporting   bool        `json:"isImporting,omitempty"   yaml:"isImporting,omitempty"`
	SpacePHID     PHID        `json:"spacePHID,omitempty"     yaml:"spacePHID,omitempty"`
	DateCreated   int64       `json:"dateCreated"             yaml:"dateCreated"`
	DateModified  int64       `json:"dateModified"            yaml:"dateModified"`
	DefaultBranch string      `json:"defaultBranch,omitempty" yaml:"defaultBranch,omitempty"`
	Policy        interface{} `json:"policy,omitempty"        yaml:"policy,omitempty"`
}

// BrowseResult is the directory listing returned by diffusion.browsequery.
type BrowseResult struct {
	Paths        []BrowsePath `json:"pathList"     yaml:"pathList"`
	Limit        int          `json:"limit"        yaml:"limit"`
	ReachedLimit bool         `json:"reachedLimit" yaml:"reachedLimit"`
}

// BrowsePath is one entry of a directory listing.
type BrowsePath struct {
	Path     string `json:"path"               yaml:"path"`
	FullPath string `json:"fullPath,omitempty" yaml:"fullPath,omitempty"`
	FileType int    `json:"fileType"           yaml:"fileType"`
}

// FileContentRef is returned by diffusion.filecontentquery; the content
// itself is fetched through file.download using FilePHID.
type FileContentRef struct {
	FilePHID PHID `json:"filePHID" yaml:"filePHID"`
	TooSlow  bool `json:"tooSlow"  yaml:"tooSlow"`
	TooHuge  bool `json:"tooHuge"  yaml:"tooHuge"`
}

// File is a file object as returned by file.search.
type File struct {
	ID     int        `json:"id"     yaml:"id"`
	Type   string     `json:"type"   yaml:"type"`
	PHID   PHID       `json:"phid"   yaml:"phid"`
	Fields FileFields `json:"fields" yaml:"fields"`
}

// FileFields holds the field block of a file search result.
type FileFields struct {
	Name         string `json:"name"              yaml:"name"`
	URI          string `json:"uri,omitempty"     yaml:"uri,omitempty"`
	DataURI      string `json:"dataURI,omitempty" yaml:"dataURI,omitempty"`
	Size         int64  `json:"size"              yaml:"size"`
	DateCreated  int64  `json:"dateCreated"       yaml:"dateCreated"`
	DateModified int64  `json:"dateModified"      yaml:"dateModified"`
}

// Project is a project as returned by project.search.
type Project struct {
	ID          int                        `json:"id"                    yaml:"id"`
	Type        string                     `json:"type"                  yaml:"type"`
	PHID        PHID                       `json:"phid"                  yaml:"phid"`
	Fields      ProjectFields              `json:"fields"                yaml:"fields"`
	Attachments map[string]json.RawMessage `json:"attachments,omitempty" yaml:"attachments,omitempty"`
}

// ProjectFields holds the field block of a project search result.
type ProjectFields struct {
	Name         string       `json:"name"                  yaml:"name"`
	Slug         string       `json:"slug,omitempty"        yaml:"slug,omitempty"`
	SubtypeKey   string       `json:"subtype,omitempty"     yaml:"subtype,omitempty"`
	Milestone    *int         `json:"milestone,omitempty"   yaml:"milestone,omitempty"`
	Depth        int          `json:"depth,omitempty"       yaml:"depth,omitempty"`
	ParentPHID   PHID         `json:"parentPHID,omitempty"  yaml:"parentPHID,omitempty"`
	Icon         ProjectIcon  `json:"icon"                  yaml:"icon"`
	Color        ProjectColor `json:"color"                 yaml:"color"`
	Description  string       `json:"description,omitempty" yaml:"description,omitempty"`
	DateCreated  int64        `json:"dateCreated"           yaml:"dateCreated"`
	DateModified int64        `json:"dateModified"          yaml:"dateModified"`
}

// ProjectIcon is a project icon descriptor.
type ProjectIcon struct {
	Key  string `json:"key"            yaml:"key"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	Icon string `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// ProjectColor is a project color descriptor.
type ProjectColor struct {
	Key  string `json:"key"            yaml:"key"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// User is a user as returned by user.search.
type User struct {
	ID     int        `json:"id"     yaml:"id"`
	Type   string     `json:"type"   yaml:"type"`
	PHID   PHID       `json:"phid"   yaml:"phid"`
	Fields UserFields `json:"fields" yaml:"fields"`
}

// UserFields holds the field block of a user search result.
type UserFields struct {
	Username     string   `json:"username"        yaml:"username"`
	RealName     string   `json:"realName"        yaml:"realName"`
	Roles        []string `json:"roles,omitempty" yaml:"roles,omitempty"`
	DateCreated  int64    `json:"dateCreated"     yaml:"dateCreated"`
	DateModified int64    `json:"dateModified"    yaml:"dateModified"`
}

// Whoami is the result of user.whoami.
type Whoami struct {
	PHID         PHID     `json:"phid"                   yaml:"phid"`
	UserName     string   `json:"userName"               yaml:"userName"`
	RealName     string   `json:"realName"               yaml:"realName"`
	Image        string   `json:"image,omitempty"        yaml:"image,omitempty"`
	URI          string   `json:"uri,omitempty"          yaml:"uri,omitempty"`
	Roles        []string `json:"roles,omitempty"        yaml:"roles,omitempty"`
	PrimaryEmail string   `json:"primaryEmail,omitempty" yaml:"primaryEmail,omitempty"`
}

// Capabilities is the result of conduit.getcapabilities.
type Capabilities struct {
	Authentication []string `json:"authentication" yaml:"authentication"`
	Signatures     []string `json:"signatures"     yaml:"signatures"`
	Input          []string `json:"input"          yaml:"input"`
	Output         []string `json:"output"         yaml:"output"`
}

// ConnectStatus is the result of the conduit.connect handshake. Token-based
// clients do not need a session, so SessionKey may be empty; the call is
// still useful as a credential and reachability probe.
type ConnectStatus struct {
	ConnectionID int64  `json:"connectionID"       yaml:"connectionID"`
	SessionKey   string `json:"sessionKey"         yaml:"sessionKey"`
	UserPHID     PHID   `json:"userPHID,omitempty" yaml:"userPHID,omitempty"`
}

// EditResult is the common result of *.edit endpoints.
type EditResult struct {
	Object       EditedObject      `json:"object"       yaml:"object"`
	Transactions []EditTransaction `json:"transactions" yaml:"transactions"`
}

// EditedObject identifies the object created or mutated by an edit.
type EditedObject struct {
	ID   int  `json:"id"   yaml:"id"`
	PHID PHID `json:"phid" yaml:"phid"`
}

// EditTransaction identifies one applied transaction.
type EditTransaction struct {
	PHID PHID `json:"phid" yaml:"phid"`
}
