package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/carlmjohnson/versioninfo"
	"golang.org/x/time/rate"

	"github.com/gooseontheloose/Group-Guard-for-VRChat-sub004/automod"
)

// ErrNotFound indicates the upstream directory has no record for the id.
var ErrNotFound = fmt.Errorf("profile not found in directory")

// profileView is the upstream wire shape for a user profile.
type profileView struct {
	ID                    string   `json:"id"`
	DisplayName           string   `json:"displayName"`
	Bio                   string   `json:"bio"`
	StatusDescription     string   `json:"statusDescription"`
	Pronouns              string   `json:"pronouns"`
	Tags                  []string `json:"tags"`
	AgeVerified           bool     `json:"ageVerified"`
	AgeVerificationStatus string   `json:"ageVerificationStatus"`
}

type groupView struct {
	GroupID string `json:"groupId"`
}

// RemoteDirectory looks up profiles and group memberships from the community
// platform API. Requests are throttled by a shared limiter so that batch
// scans stay inside upstream quotas.
type RemoteDirectory struct {
	Host    string
	Client  *http.Client
	Limiter *rate.Limiter
	Logger  *slog.Logger
}

var _ automod.ProfileDirectory = (*RemoteDirectory)(nil)

func NewRemoteDirectory(host string, requestsPerSecond float64, logger *slog.Logger) *RemoteDirectory {
	if logger == nil {
		logger = slog.Default()
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &RemoteDirectory{
		Host:    host,
		Client:  robustHTTPClient(logger),
		Limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		Logger:  logger,
	}
}

func (rd *RemoteDirectory) get(ctx context.Context, path string, out interface{}) error {
	if rd.Limiter != nil {
		if err := rd.Limiter.Wait(ctx); err != nil {
			return err
		}
	}
	u, err := url.JoinPath(rd.Host, path)
	if err != nil {
		return fmt.Errorf("invalid directory URL: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", fmt.Sprintf("groupguard/%s", versioninfo.Short()))

	resp, err := rd.Client.Do(req)
	if err != nil {
		return fmt.Errorf("directory request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("directory request failed: status=%d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading directory response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing directory response: %w", err)
	}
	return nil
}

// LookupProfile fetches the full profile for an occupant id.
func (rd *RemoteDirectory) LookupProfile(ctx context.Context, id string) (*automod.Candidate, error) {
	var pv profileView
	if err := rd.get(ctx, "/api/1/users/"+url.PathEscape(id), &pv); err != nil {
		return nil, err
	}
	return &automod.Candidate{
		ID:                    pv.ID,
		DisplayName:           pv.DisplayName,
		Bio:                   pv.Bio,
		StatusDescription:     pv.StatusDescription,
		Pronouns:              pv.Pronouns,
		Tags:                  pv.Tags,
		AgeVerified:           pv.AgeVerified,
		AgeVerificationStatus: pv.AgeVerificationStatus,
	}, nil
}

// LookupGroups fetches the group ids an occupant belongs to.
func (rd *RemoteDirectory) LookupGroups(ctx context.Context, id string) ([]string, error) {
	var gvs []groupView
	if err := rd.get(ctx, "/api/1/users/"+url.PathEscape(id)+"/groups", &gvs); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(gvs))
	for _, gv := range gvs {
		out = append(out, gv.GroupID)
	}
	return out, nil
}
