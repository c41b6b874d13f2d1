package cli

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/mager/bandsaw/bandsaw"
	"github.com/mager/bandsaw/config"
)

const (
	uploadTimeout = 10 * time.Minute
	pollInterval  = 3 * time.Second
)

func runUpload(args []string) int {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	var server, group, apiKey string
	fs.StringVar(&server, "s", "", "Server URL (e.g. http://localhost:8000).")
	fs.StringVar(&server, "server", "", "Server URL (e.g. http://localhost:8000).")
	fs.StringVar(&group, "g", "", "Group name to upload into.")
	fs.StringVar(&group, "group", "", "Group name to upload into.")
	fs.StringVar(&apiKey, "api-key", os.Getenv("JAM_API_KEY"), "API key (or set JAM_API_KEY).")
	fs.Usage = func() {
		fmt.Println("Usage: bandsaw upload [options] FILE")
		fmt.Println()
		fmt.Println("Options:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 1
	}
	path := fs.Arg(0)

	switch {
	case server == "":
		fmt.Println("Error: Missing server URL (use -s)")
		return 1
	case group == "":
		fmt.Println("Error: Missing group name (use -g)")
		return 1
	case apiKey == "":
		fmt.Println("Error: Missing API key (use --api-key or set JAM_API_KEY)")
		return 1
	}

	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Error: File '%s' does not exist\n", path)
		return 1
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !config.UploadExtensions[ext] {
		fmt.Printf("Error: Invalid file type '%s'. Allowed: %s\n", ext, config.UploadExtensionList())
		return 1
	}

	base := strings.TrimRight(server, "/")
	sizeMB := float64(info.Size()) / (1024 * 1024)
	fmt.Printf("Uploading %s (%.1f MB) to %s (group: %s)...\n", filepath.Base(path), sizeMB, server, group)

	groupID, ok := resolveGroup(base, server, group, apiKey)
	if !ok {
		return 1
	}

	f, err := os.Open(path)
	if err != nil {
		fmt.Printf("Error: Could not open '%s'\n", path)
		return 1
	}
	defer f.Close()

	progress := mpb.New(mpb.WithWidth(64))
	bar := progress.AddBar(info.Size(),
		mpb.PrependDecorators(
			decor.Name("Uploading: "),
			decor.CountersKibiByte("% .1f / % .1f"),
		),
		mpb.AppendDecorators(decor.Percentage()),
	)

	// Stream the multipart body through a pipe so the whole file never
	// sits in memory.
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		part, err := form.CreateFormFile("file", filepath.Base(path))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		body := bar.ProxyReader(f)
		_, err = io.Copy(part, body)
		body.Close()
		if cerr := form.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	uploadURL := fmt.Sprintf("%s/api/sessions/upload?group_id=%d", base, groupID)
	req, err := http.NewRequest(http.MethodPost, uploadURL, pr)
	if err != nil {
		fmt.Printf("Error: Could not connect to %s\n", server)
		return 1
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("X-API-Key", apiKey)

	client := &http.Client{Timeout: uploadTimeout}
	resp, err := client.Do(req)
	if !bar.Completed() {
		bar.Abort(true)
	}
	progress.Wait()
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) && uerr.Timeout() {
			fmt.Println("Error: Upload timed out (10 minutes)")
		} else {
			fmt.Printf("Error: Could not connect to %s\n", server)
		}
		return 1
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("Error: Could not connect to %s\n", server)
		return 1
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		msg := fmt.Sprintf("Error: Server returned %d", resp.StatusCode)
		var body struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &body) == nil && body.Error != "" {
			msg += " — " + body.Error
		}
		fmt.Println(msg)
		return 1
	}

	if resp.StatusCode == http.StatusAccepted {
		var accepted struct {
			ID        string `json:"id"`
			SessionID int64  `json:"session_id"`
		}
		if err := json.Unmarshal(data, &accepted); err != nil {
			fmt.Println("Error: Could not parse the server response")
			return 1
		}
		fmt.Printf("Uploaded. Session id=%d, processing (job %s)...\n", accepted.SessionID, accepted.ID)
		return pollJob(base, apiKey, accepted.ID, accepted.SessionID)
	}

	// A server that processed synchronously answers 200 with the
	// finished session.
	var sess bandsaw.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		fmt.Println("Error: Could not parse the server response")
		return 1
	}
	date := sess.Date
	if date == "" {
		date = "unknown"
	}
	fmt.Printf("Session created (id=%d)\n", sess.ID)
	fmt.Printf("  Date: %s\n", date)
	fmt.Printf("  Tracks: %d\n", sess.TrackCount)
	fmt.Printf("  Source: %s\n", sess.SourceFile)
	return 0
}

// resolveGroup asks the server to translate a group name into its id.
func resolveGroup(base, server, group, apiKey string) (int64, bool) {
	req, err := http.NewRequest(http.MethodGet, base+"/api/admin/groups", nil)
	if err != nil {
		fmt.Printf("Error: Could not connect to %s\n", server)
		return 0, false
	}
	req.Header.Set("X-API-Key", apiKey)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error: Could not connect to %s\n", server)
		return 0, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Error: Failed to fetch groups (status %d)\n", resp.StatusCode)
		return 0, false
	}

	var groups []bandsaw.Group
	if err := json.NewDecoder(resp.Body).Decode(&groups); err != nil {
		fmt.Println("Error: Could not parse the group list from the server")
		return 0, false
	}
	for _, g := range groups {
		if g.Name == group {
			return g.ID, true
		}
	}

	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}
	fmt.Printf("Error: Group '%s' not found on server. Available: %s\n", group, strings.Join(names, ", "))
	return 0, false
}

// pollJob watches a processing job until it reaches a terminal state.
func pollJob(base, apiKey, jobID string, sessionID int64) int {
	client := &http.Client{Timeout: 10 * time.Second}
	jobURL := fmt.Sprintf("%s/api/jobs/%s", base, jobID)

	for {
		time.Sleep(pollInterval)

		req, err := http.NewRequest(http.MethodGet, jobURL, nil)
		if err != nil {
			fmt.Println("  Waiting...")
			continue
		}
		req.Header.Set("X-API-Key", apiKey)
		resp, err := client.Do(req)
		if err != nil {
			fmt.Println("  Waiting...")
			continue
		}
		var job bandsaw.Job
		err = json.NewDecoder(resp.Body).Decode(&job)
		resp.Body.Close()
		if err != nil {
			fmt.Println("  Waiting...")
			continue
		}

		status := job.Status
		if status == "" {
			status = "unknown"
		}
		if job.Message != "" {
			fmt.Printf("  %s: %s\n", status, job.Message)
		} else {
			fmt.Printf("  %s\n", status)
		}

		switch job.Status {
		case bandsaw.JobComplete:
			fmt.Printf("Done. Session id=%d\n", sessionID)
			return 0
		case bandsaw.JobFailed:
			reason := job.Error
			if reason == "" {
				reason = "unknown"
			}
			fmt.Printf("Error: Processing failed — %s\n", reason)
			return 1
		}
	}
}
