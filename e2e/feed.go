package e2e

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

// FeedToken is the bearer token the server under test must send to the fake feed.
const FeedToken = "e2e-feed-token"

type feedAnswer struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

type feedAttendee struct {
	ID      string `json:"id"`
	Profile struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Name      string `json:"name"`
		Email     string `json:"email"`
	} `json:"profile"`
	Answers []feedAnswer `json:"answers"`
}

// FakeFeed serves registrant pages in the provider's wire format.
type FakeFeed struct {
	mu        sync.Mutex
	attendees map[string][]feedAttendee
	failing   map[string]int
	server    *http.Server
}

func StartFakeFeed(addr string) (*FakeFeed, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	f := &FakeFeed{attendees: map[string][]feedAttendee{}, failing: map[string]int{}}
	f.server = &http.Server{Handler: http.HandlerFunc(f.serve)}
	go func() { _ = f.server.Serve(ln) }()
	return f, nil
}

func (f *FakeFeed) Close() error { return f.server.Close() }

func (f *FakeFeed) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attendees = map[string][]feedAttendee{}
	f.failing = map[string]int{}
}

// AddAttendee registers one attendee; the document answer goes under q-doc and the group under q-group.
func (f *FakeFeed) AddAttendee(source, attendeeID, first, last, email, document, group string) {
	a := feedAttendee{ID: attendeeID}
	a.Profile.FirstName = first
	a.Profile.LastName = last
	a.Profile.Email = email
	if document != "" {
		a.Answers = append(a.Answers, feedAnswer{QuestionID: "q-doc", Answer: document})
	}
	if group != "" {
		a.Answers = append(a.Answers, feedAnswer{QuestionID: "q-group", Answer: group})
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.attendees[source] = append(f.attendees[source], a)
}

// FailWith makes every page of source answer with status.
func (f *FakeFeed) FailWith(source string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[source] = status
}

func (f *FakeFeed) serve(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+FeedToken {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	// /events/{source}/attendees/
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[0] != "events" || parts[2] != "attendees" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	source := parts[1]
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 50
	}

	f.mu.Lock()
	status := f.failing[source]
	all := f.attendees[source]
	f.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}

	start := min((page-1)*size, len(all))
	end := min(start+size, len(all))

	var body struct {
		Pagination struct {
			PageNumber   int  `json:"page_number"`
			HasMoreItems bool `json:"has_more_items"`
		} `json:"pagination"`
		Attendees []feedAttendee `json:"attendees"`
	}
	body.Pagination.PageNumber = page
	body.Pagination.HasMoreItems = end < len(all)
	body.Attendees = all[start:end]

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
