package event_bus

const (
	TopicSignedIn  Topic = "auth.signed_in"
	TopicSignedOut Topic = "auth.signed_out"
)

// DocumentTopic is the topic on which changes to a document collection are announced.
func DocumentTopic(collection string) Topic {
	return Topic("docstore." + collection)
}

type DocumentChanged struct {
	Collection string
	Id         string
	Deleted    bool
}

type ViewerSignedIn struct {
	UserId    string
	SessionId string
}

type ViewerSignedOut struct {
	UserId    string
	SessionId string
}
