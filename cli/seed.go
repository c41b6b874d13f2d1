package cli

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"go.uber.org/zap"

	"github.com/mager/bandsaw/auth"
	"github.com/mager/bandsaw/bandsaw"
	"github.com/mager/bandsaw/config"
	"github.com/mager/bandsaw/database"
	"github.com/mager/bandsaw/output"
)

const demoPassword = "testpass123"

type seedUser struct {
	email string
	name  string
	group string
	role  string
}

type seedTrack struct {
	start float64
	end   float64
	song  string
	notes string
}

type seedSession struct {
	group  string
	source string
	date   string
	notes  string
	tracks []seedTrack
}

type songDetail struct {
	chart  string
	lyrics string
	notes  string
}

var demoGroups = []string{"Porch Dogs", "The Slow Burners"}

var demoUsers = []seedUser{
	{"eric@example.com", "Eric", "Porch Dogs", bandsaw.RoleSuperadmin},
	{"dave@example.com", "Dave", "Porch Dogs", bandsaw.RoleAdmin},
	{"mike@example.com", "Mike", "The Slow Burners", bandsaw.RoleEditor},
}

var demoSongDetails = map[string]songDetail{
	"Fat Cat": {
		chart:  "Intro: E | E | A | A\nVerse: E | G | A | E\nChorus: A | B | E | E\nBridge: C#m | A | B | E",
		lyrics: "Fat cat sittin' on the windowsill\nWatchin' the world go by\nGot no worries, got no bills\nJust a lazy kinda guy",
		notes:  "Key of E. Dave kicks off the riff, bass comes in on the & of beat 4. Bridge is half-time feel.",
	},
	"Good God Damn": {
		chart:  "Intro: Am | Am | Am | Am\nVerse: Am | C | G | D\nChorus: F | G | Am | Am\nOutro: Am | G | F | E",
		lyrics: "Good god damn, what a mess\nWoke up late in yesterday's dress\nCoffee's cold and the dog got out\nThat's what Monday's all about",
		notes:  "Starts quiet, builds each verse. Outro is a slow burn — let the last Am ring.",
	},
	"Spit Me Out": {
		chart: "Verse: D | F#m | Bm | G\nPre-chorus: G | A | G | A\nChorus: D | A | Bm | G",
		notes: "Uptempo. The pre-chorus pushes hard — don't rush into the chorus, leave a breath. Eric drops out on bass for the first half of verse 2.",
	},
	"Be Forever": {
		chart:  "Intro: Cmaj7 | Em7 | Am7 | Fmaj7\nVerse: C | Em | Am | F\nChorus: F | G | Am | C\nBridge: Dm | G | C | Am",
		lyrics: "If I could be forever\nStandin' in the pouring rain\nI'd hold the sky together\nJust to wash away the pain",
		notes:  "Ballad feel. Key change from C to D on the last chorus — watch Dave's nod.",
	},
	"River Mouth": {
		chart:  "Intro: Em | Em | Em | Em\nVerse: Em | G | C | D\nChorus: C | D | Em | Em\nBreakdown: Am | Am | Em | Em",
		lyrics: "Down by the river mouth\nWhere the water meets the sound\nI left my heavy heart\nAnd let the current pull it down",
		notes:  "Open-string riff in the intro. Breakdown is just bass and drums, guitar comes back on the repeat.",
	},
	"Dust & Neon": {
		chart:  "Verse: A | D | A | E\nChorus: D | E | A | F#m\nSolo: A | D | E | A",
		lyrics: "Dust and neon, two-lane road\nDashboard lights and a heavy load\nLeft that town in the rearview glow\nAin't comin' back, that much I know",
		notes:  "Driving rock feel. Bass follows the kick pattern in the verse, locks with guitar on the chorus. Solo section is open — trade off.",
	},
	"Low Tide": {
		chart:  "Intro: Dm | Am | Bb | F\nVerse: Dm | Am | Bb | C\nChorus: Bb | C | Dm | Dm",
		lyrics: "Low tide pulling at the shore\nEverything I had before\nSlipping through my hands like sand\nNothing goes the way you plan",
		notes:  "Slow and spacey. Lots of reverb. Let notes ring and decay. Mike plays sparse — leave room.",
	},
	"Copper Wire": {
		chart: "Verse: Em | Em | Am | Am\nBuild: C | D | Em | Em\nPeak: Em | G | D | Am",
		notes: "Builds from nothing to a wall of sound. Verse is just bass and a clean guitar line. Feedback section after the peak — controlled chaos, come back in together on the downbeat.",
	},
}

var demoSessions = []seedSession{
	{
		group:  "Porch Dogs",
		source: "Rehearsal 10-15-25.m4a",
		date:   "2025-10-15",
		notes:  "First session at the new space. Drums sounded great.",
		tracks: []seedTrack{
			{0, 245, "Fat Cat", "Solid take, nailed the bridge"},
			{280, 510, "Good God Damn", ""},
			{550, 780, "Spit Me Out", "Tempo drifted in the outro"},
			{820, 1050, "", "Jam — untagged improv"},
		},
	},
	{
		group:  "Porch Dogs",
		source: "Rehearsal 10-22-25.m4a",
		date:   "2025-10-22",
		tracks: []seedTrack{
			{0, 230, "Fat Cat", ""},
			{270, 520, "Be Forever", "Key change worked well"},
			{560, 800, "Good God Damn", ""},
		},
	},
	{
		group:  "Porch Dogs",
		source: "Rehearsal 11-5-25.m4a",
		date:   "2025-11-05",
		notes:  "Short session, Dave had to leave early.",
		tracks: []seedTrack{
			{0, 260, "Spit Me Out", "Best take yet"},
			{300, 540, "River Mouth", "First time playing this one"},
		},
	},
	{
		group:  "Porch Dogs",
		source: "Rehearsal 11-12-25.m4a",
		date:   "2025-11-12",
		tracks: []seedTrack{
			{0, 210, "Fat Cat", ""},
			{250, 490, "River Mouth", ""},
			{530, 770, "Good God Damn", "Tried the half-time break"},
			{810, 1020, "Dust & Neon", "First rehearsal of this tune"},
		},
	},
	{
		group:  "Porch Dogs",
		source: "Rehearsal 11-19-25.m4a",
		date:   "2025-11-19",
		notes:  "Recorded with the new mic setup.",
		tracks: []seedTrack{
			{0, 280, "Be Forever", ""},
			{320, 550, "Dust & Neon", "Getting tighter"},
			{590, 830, "Fat Cat", ""},
			{870, 1100, "", "Blues jam"},
		},
	},
	{
		group:  "Porch Dogs",
		source: "Rehearsal 12-3-25.m4a",
		date:   "2025-12-03",
		tracks: []seedTrack{
			{0, 240, "Spit Me Out", ""},
			{280, 530, "Good God Damn", ""},
			{570, 800, "River Mouth", "Extended solo section"},
			{840, 1060, "Fat Cat", ""},
		},
	},
	{
		group:  "Porch Dogs",
		source: "Rehearsal 12-10-25.m4a",
		date:   "2025-12-10",
		notes:  "Pre-gig runthrough. Setlist order.",
		tracks: []seedTrack{
			{0, 250, "Fat Cat", ""},
			{290, 540, "Good God Damn", ""},
			{580, 810, "Be Forever", ""},
			{850, 1090, "Spit Me Out", ""},
			{1130, 1350, "Dust & Neon", ""},
		},
	},
	{
		group:  "Porch Dogs",
		source: "Rehearsal 1-7-26.m4a",
		date:   "2026-01-07",
		notes:  "First session of the new year.",
		tracks: []seedTrack{
			{0, 270, "River Mouth", "New arrangement"},
			{310, 540, "Dust & Neon", ""},
			{580, 820, "", "New song idea — needs a name"},
		},
	},
	{
		group:  "Porch Dogs",
		source: "Rehearsal 1-14-26.m4a",
		date:   "2026-01-14",
		tracks: []seedTrack{
			{0, 230, "Fat Cat", ""},
			{270, 510, "Be Forever", ""},
			{550, 790, "Spit Me Out", ""},
			{830, 1050, "Good God Damn", ""},
		},
	},
	{
		group:  "Porch Dogs",
		source: "Rehearsal 1-28-26.m4a",
		date:   "2026-01-28",
		notes:  "Working on transitions between songs.",
		tracks: []seedTrack{
			{0, 260, "Dust & Neon", ""},
			{300, 530, "River Mouth", ""},
			{570, 810, "Fat Cat", "Tried the new ending"},
			{850, 1090, "", "Improv"},
		},
	},
	{
		group:  "Porch Dogs",
		source: "Rehearsal 2-4-26.m4a",
		date:   "2026-02-04",
		tracks: []seedTrack{
			{0, 240, "Good God Damn", ""},
			{280, 520, "Spit Me Out", ""},
			{560, 790, "Be Forever", ""},
		},
	},
	{
		group:  "Porch Dogs",
		source: "Rehearsal 2-11-26.m4a",
		date:   "2026-02-11",
		notes:  "Tight session. Everything clicked.",
		tracks: []seedTrack{
			{0, 250, "Fat Cat", "Best version yet"},
			{290, 540, "Dust & Neon", ""},
			{580, 830, "River Mouth", ""},
			{870, 1100, "Good God Damn", ""},
		},
	},
	{
		group:  "The Slow Burners",
		source: "Slow Burners 11-20-25.m4a",
		date:   "2025-11-20",
		notes:  "Mike's side project. Chill vibes.",
		tracks: []seedTrack{
			{0, 320, "Low Tide", "Long intro, let it breathe"},
			{360, 650, "Copper Wire", ""},
			{700, 950, "", "Ambient jam"},
		},
	},
	{
		group:  "The Slow Burners",
		source: "Slow Burners 12-18-25.m4a",
		date:   "2025-12-18",
		tracks: []seedTrack{
			{0, 350, "Low Tide", ""},
			{390, 680, "Copper Wire", "Added the feedback section"},
			{720, 980, "Low Tide", "Second take — better dynamics"},
		},
	},
	{
		group:  "The Slow Burners",
		source: "Slow Burners 1-22-26.m4a",
		date:   "2026-01-22",
		notes:  "Exploring new textures.",
		tracks: []seedTrack{
			{0, 300, "Copper Wire", ""},
			{340, 620, "", "New idea — drone thing"},
			{660, 900, "Low Tide", ""},
		},
	},
}

// toneFreqs cycles through an A minor pentatonic so adjacent demo
// clips sound distinct.
var toneFreqs = []float64{220, 261.63, 293.66, 329.63, 392}

func runSeedDemo() int {
	fmt.Println("This will reset the database and fill it with demo data.")
	if !confirm("Are you sure?") {
		fmt.Println("Aborted.")
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	db, err := database.Open(cfg.DBPath, zap.NewNop().Sugar())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	defer db.Close()

	if err := seedDemo(db, cfg); err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	return 0
}

func seedDemo(db *database.DB, cfg config.Config) error {
	if err := db.Reset(); err != nil {
		return err
	}
	fmt.Println("Database reset.")

	groupIDs := make(map[string]int64, len(demoGroups))
	for _, name := range demoGroups {
		id, err := db.CreateGroup(name)
		if err != nil {
			return err
		}
		groupIDs[name] = id
		fmt.Printf("  Group: %s (id=%d)\n", name, id)
	}

	hash, err := auth.HashPassword(demoPassword)
	if err != nil {
		return err
	}
	for _, u := range demoUsers {
		id, err := db.CreateUser(u.email, hash, u.name, u.role)
		if err != nil {
			return err
		}
		if err := db.AssignUserToGroup(id, groupIDs[u.group]); err != nil {
			return err
		}
		fmt.Printf("  User: %s [%s] -> %s\n", u.email, u.role, u.group)
	}

	// Eric plays in both bands.
	eric, err := db.GetUserByEmail("eric@example.com")
	if err != nil {
		return err
	}
	if err := db.AssignUserToGroup(eric.ID, groupIDs["The Slow Burners"]); err != nil {
		return err
	}
	fmt.Println("  User: eric@example.com -> The Slow Burners (additional)")

	songIDs := make(map[string]int64)
	totalTracks, taggedTracks, clips := 0, 0, 0
	for _, s := range demoSessions {
		date, err := time.Parse("2006-01-02", s.date)
		if err != nil {
			return err
		}
		relSource := cfg.MakeRelative(filepath.Join(cfg.InputDir, s.source))
		sessionID, err := db.CreateSession(groupIDs[s.group], relSource, s.date, s.notes)
		if err != nil {
			return err
		}

		stem := strings.TrimSuffix(s.source, filepath.Ext(s.source))
		outDir := cfg.OutputDirForSource(stem)
		for i, t := range s.tracks {
			start, end := t.start, t.end
			name := output.TrackName(output.NameParts{
				Date:        &date,
				TrackNumber: i + 1,
				TotalTracks: len(s.tracks),
				StartSec:    &start,
				EndSec:      &end,
				SongName:    t.song,
				Extension:   output.WAV.Extension,
			})
			dest := filepath.Join(outDir, name)
			if err := writeToneWAV(dest, toneFreqs[i%len(toneFreqs)], 2.0); err != nil {
				return err
			}
			clips++

			trackID, err := db.CreateTrack(sessionID, i+1, start, end, cfg.MakeRelative(dest), "")
			if err != nil {
				return err
			}
			if t.notes != "" {
				if err := db.UpdateTrackNotes(trackID, t.notes); err != nil {
					return err
				}
			}
			if t.song != "" {
				songID, err := db.TagTrack(trackID, t.song)
				if err != nil {
					return err
				}
				songIDs[t.song] = songID
				taggedTracks++
			}
			totalTracks++
		}
	}

	details := 0
	for name, d := range demoSongDetails {
		id, ok := songIDs[name]
		if !ok {
			continue
		}
		if err := db.UpdateSongDetails(id, d.chart, d.lyrics, d.notes); err != nil {
			return err
		}
		details++
	}

	fmt.Printf("  Sessions: %d\n", len(demoSessions))
	fmt.Printf("  Tracks: %d (%d tagged, %d untagged)\n", totalTracks, taggedTracks, totalTracks-taggedTracks)
	fmt.Printf("  Songs: %d created\n", len(songIDs))
	fmt.Printf("  Song details: %d with charts/lyrics/notes\n", details)
	fmt.Printf("  Demo audio: %d clips under %s\n", clips, cfg.OutputDir)
	fmt.Printf("\nAll users have password: %s\n", demoPassword)
	fmt.Println("Done.")
	return nil
}

// writeToneWAV renders a short sine clip so the seeded track has real
// audio behind it.
func writeToneWAV(dest string, freq, seconds float64) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	const sampleRate = 22050
	n := int(seconds * sampleRate)
	data := make([]int, n)
	for i := range data {
		v := math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
		// Ramp the edges to avoid clicks.
		const ramp = sampleRate / 50
		fade := 1.0
		if i < ramp {
			fade = float64(i) / ramp
		} else if n-i < ramp {
			fade = float64(n-i) / ramp
		}
		data[i] = int(v * fade * 0.4 * 32767)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: 1},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}
