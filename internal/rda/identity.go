package rda

import "fmt"

// An Identity names the XNAT destination of one file.
type Identity struct {
	Project           string
	Subject           string
	Experiment        string
	ScanID            string
	SeriesDescription string
	StudyDate         string
}

// Complete returns true when the identity is routable to an XNAT session.
func (id Identity) Complete() bool {
	return id.Project != "" && id.Subject != "" && id.Experiment != ""
}

// Merge fills the empty fields of id from other.
func (id Identity) Merge(other Identity) Identity {
	if id.Project == "" {
		id.Project = other.Project
	}
	if id.Subject == "" {
		id.Subject = other.Subject
	}
	if id.Experiment == "" {
		id.Experiment = other.Experiment
	}
	if id.ScanID == "" {
		id.ScanID = other.ScanID
	}
	if id.SeriesDescription == "" {
		id.SeriesDescription = other.SeriesDescription
	}
	if id.StudyDate == "" {
		id.StudyDate = other.StudyDate
	}
	return id
}

// Derive fills the empty fields of the given defaults from an RDA header:
// project from StudyDescription, subject from PatientName, experiment from
// PatientID and scan from SeriesNumber. It returns the identity and a note
// per derived field.
func Derive(filename string, hdr Header, defaults Identity) (Identity, []string) {
	id := defaults
	var notes []string

	if id.Project == "" {
		if sd := hdr[KeyStudyDescription]; sd != "" {
			id.Project = Sanitize(sd)
			notes = append(notes, fmt.Sprintf("%s: Project → %q (StudyDescription)", filename, id.Project))
		}
	}
	if id.Subject == "" {
		if pn := hdr[KeyPatientName]; pn != "" {
			id.Subject = Sanitize(pn)
			notes = append(notes, fmt.Sprintf("%s: Subject → %q (PatientName)", filename, id.Subject))
		}
	}
	if id.Experiment == "" {
		if pid := hdr[KeyPatientID]; pid != "" {
			id.Experiment = Sanitize(pid)
			notes = append(notes, fmt.Sprintf("%s: Session → %q (PatientID)", filename, id.Experiment))
		}
	}
	if id.ScanID == "" {
		if sn := hdr[KeySeriesNumber]; sn != "" {
			id.ScanID = sn
			notes = append(notes, fmt.Sprintf("%s: ScanID → %s (SeriesNumber)", filename, id.ScanID))
		}
	}
	if id.StudyDate == "" {
		if sd := hdr[KeyStudyDate]; sd != "" {
			id.StudyDate = sd
			notes = append(notes, fmt.Sprintf("%s: StudyDate → %s", filename, id.StudyDate))
		}
	}
	if id.SeriesDescription == "" {
		id.SeriesDescription = hdr[KeySeriesDescription]
	}

	return id, notes
}
