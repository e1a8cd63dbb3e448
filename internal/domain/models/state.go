package models

import "time"

// State is the persisted record of one editing session
type State struct {
	ContractType     string       `json:"contractType"`
	ContractData     ContractData `json:"contractData"`
	ContractArticles []Clause     `json:"contractArticles"`
	Timestamp        time.Time    `json:"timestamp"`
	Version          string       `json:"version"`
}

// Clone returns a deep copy
func (s State) Clone() State {
	out := s
	out.ContractData = s.ContractData.Clone()
	out.ContractArticles = CloneClauses(s.ContractArticles)
	return out
}

// ExportFile is the shape of a downloaded state file
type ExportFile struct {
	State
	ExportedAt time.Time `json:"exportedAt"`
	Generator  string    `json:"generator"`
}

// BackupInfo describes one daily backup
type BackupInfo struct {
	Key          string    `json:"key"`
	Date         time.Time `json:"date"`
	ContractType string    `json:"contractType"`
	Size         int       `json:"size"`
}

// StorageUsage reports how much the blob store holds
type StorageUsage struct {
	Keys    int `json:"keys"`
	Bytes   int `json:"bytes"`
	Backups int `json:"backups"`
}

// CompletionStats summarizes how much of a contract has been filled in
type CompletionStats struct {
	FilledFields         int `json:"filledFields"`
	TotalArticles        int `json:"totalArticles"`
	TotalVariables       int `json:"totalVariables"`
	FilledVariables      int `json:"filledVariables"`
	CompletionPercentage int `json:"completionPercentage"`
}
