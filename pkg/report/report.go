package report

import (
	"encoding/xml"
	"os"
	"os/user"
	"runtime"
	"strconv"
	"time"

	"github.com/olescan/olescan/pkg/sysinfo"
)

const Version = "1.0"

// Header is the root element of a container report.
type Header struct {
	XMLName xml.Name `xml:"cfbfreport"`
	Version string   `xml:"version,attr,omitempty"`
	Creator Creator  `xml:"creator"`
	Source  Source   `xml:"source"`
}

// Creator describes the software and environment that produced the report.
type Creator struct {
	XMLName              xml.Name `xml:"creator"`
	Package              string   `xml:"package"`
	Version              string   `xml:"version"`
	ExecutionEnvironment ExecEnv  `xml:"execution_environment"`
}

// ExecEnv captures where the report was generated.
type ExecEnv struct {
	OS      string `xml:"os_sysname"`
	Release string `xml:"os_release"`
	Version string `xml:"os_version"`
	Host    string `xml:"host"`
	Arch    string `xml:"arch"`
	UID     int    `xml:"uid"`
	Start   string `xml:"start_time"`
}

// Source describes the analysed container file.
type Source struct {
	XMLName    xml.Name `xml:"source"`
	Filename   string   `xml:"filename"`
	SectorSize int      `xml:"sectorsize"`
	FileSize   int64    `xml:"filesize"`
}

// Object is one directory entry of the container with its resolved
// physical extents.
type Object struct {
	XMLName  xml.Name `xml:"object"`
	Path     string   `xml:"path"`
	Type     string   `xml:"type"`
	Size     uint64   `xml:"size"`
	Mini     bool     `xml:"ministream,attr,omitempty"`
	ByteRuns ByteRuns `xml:"byte_runs"`
}

// ByteRuns is a collection of ByteRun extents.
type ByteRuns struct {
	Runs []ByteRun `xml:"byte_run"`
}

// ByteRun is one contiguous extent of object data within the container.
type ByteRun struct {
	Offset    uint64 `xml:"offset,attr"`
	ImgOffset uint64 `xml:"img_offset,attr"`
	Length    uint64 `xml:"len,attr"`
}

// GetExecEnv populates an ExecEnv from the current host.
func GetExecEnv() ExecEnv {
	sinfo, err := sysinfo.Stat()
	if err != nil {
		sinfo = &sysinfo.SysUnknown
	}

	host, err := os.Hostname()
	if err != nil {
		host = "unknown_host"
	}

	uid := 0
	if u, err := user.Current(); err == nil {
		if v, err := strconv.Atoi(u.Uid); err == nil {
			uid = v
		}
	}

	return ExecEnv{
		OS:      sinfo.Name,
		Release: sinfo.Release,
		Version: sinfo.Version,
		Host:    host,
		Arch:    runtime.GOARCH,
		UID:     uid,
		Start:   time.Now().UTC().Format("2006-01-02T15:04:05Z"),
	}
}
