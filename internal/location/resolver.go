package location

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/aetheria/aetheria/internal/session"
)

// Coordinates is a client-supplied latitude/longitude pair.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Candidate identifies a place for a weather lookup: either a free-form
// city/landmark name or a raw coordinate pair. The zero value means "no
// location could be determined".
type Candidate struct {
	City   string
	Coords *Coordinates
}

func (c Candidate) IsZero() bool {
	return c.City == "" && c.Coords == nil
}

// Query renders the candidate as a weather-provider query string.
func (c Candidate) Query() string {
	if c.City != "" {
		return c.City
	}
	if c.Coords != nil {
		return strconv.FormatFloat(c.Coords.Lat, 'f', -1, 64) + "," +
			strconv.FormatFloat(c.Coords.Lon, 'f', -1, 64)
	}
	return ""
}

// PlaceResolver resolves a provider query to the provider's canonical place
// name. "" with a nil error means the provider knows no such place.
type PlaceResolver interface {
	ResolveName(ctx context.Context, query string) (string, error)
}

// GeoIP resolves a client address to a city name.
type GeoIP interface {
	CityForIP(ctx context.Context, ip string) (string, error)
}

// ResolveInput carries every signal the resolver reconciles for one turn.
type ResolveInput struct {
	UserText       string
	IntentLocation string
	SessionID      string
	Coordinates    *Coordinates
	History        []session.Turn
	ClientIP       string
}

// Resolver reconciles explicit mentions, saved session state, history,
// coordinates, and IP geolocation into a single location decision.
type Resolver struct {
	store  session.Store
	geoip  GeoIP
	places PlaceResolver
	logger *zap.Logger
}

func NewResolver(store session.Store, geoip GeoIP, places PlaceResolver, logger *zap.Logger) *Resolver {
	return &Resolver{
		store:  store,
		geoip:  geoip,
		places: places,
		logger: logger,
	}
}

// PersistCoordinates eagerly reverse-geocodes client coordinates and saves
// the resulting city on the session. Coordinates are a strong, low-noise
// signal worth persisting on sight, whether or not the current turn needs
// weather at all. Failures are logged and swallowed.
func (r *Resolver) PersistCoordinates(ctx context.Context, sessionID string, coords *Coordinates) {
	if coords == nil {
		return
	}
	name, err := r.places.ResolveName(ctx, Candidate{Coords: coords}.Query())
	if err != nil {
		r.logger.Warn("Failed to reverse-geocode client coordinates",
			zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	if name == "" {
		r.logger.Debug("Coordinates did not resolve to a known place",
			zap.String("session_id", sessionID))
		return
	}
	r.store.SetCurrentCity(sessionID, name)
}

// Resolve picks one location following the fixed priority chain. A higher
// priority hit overrides lower ones even when those would also match.
func (r *Resolver) Resolve(ctx context.Context, in ResolveInput) Candidate {
	// Priority 1: explicit mention, from intent or raw-text extraction.
	explicit := strings.TrimSpace(in.IntentLocation)
	if explicit == "" {
		explicit = ExtractCity(in.UserText)
	}
	if explicit != "" {
		return Candidate{City: explicit}
	}

	// Priority 2: the session's saved city.
	if saved := r.store.CurrentCity(in.SessionID); saved != "" {
		return Candidate{City: saved}
	}

	// Priority 3: scan the conversation history.
	if fromHistory := LastCityInHistory(in.History, r.logger); fromHistory != "" {
		return Candidate{City: fromHistory}
	}

	// Priority 4: raw coordinates, if the client sent them.
	if in.Coordinates != nil {
		return Candidate{Coords: in.Coordinates}
	}

	// Priority 5: IP geolocation. Degraded, never fatal.
	city, err := r.geoip.CityForIP(ctx, in.ClientIP)
	if err != nil {
		r.logger.Warn("IP geolocation failed",
			zap.String("client_ip", in.ClientIP), zap.Error(err))
		return Candidate{}
	}
	return Candidate{City: city}
}

// CommitResolvedCity saves the weather provider's canonical place name as
// the session's current city. The provider may disambiguate spelling, so the
// stored value follows the provider, replacing the previous one whenever it
// differs.
func (r *Resolver) CommitResolvedCity(sessionID, resolvedName string) {
	if resolvedName == "" {
		return
	}
	if r.store.CurrentCity(sessionID) != resolvedName {
		r.store.SetCurrentCity(sessionID, resolvedName)
	}
}
