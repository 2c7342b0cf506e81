package storage

import "database/sql"

// Null scanner helpers - reduce repetitive nil-checking code

func scanNullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// scanner is an interface satisfied by both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

// scanBan scans one ban_list row selected with banColumns
func scanBan(s scanner) (*Ban, error) {
	var b Ban
	var name, ip, ts, reason sql.NullString
	if err := s.Scan(&b.ID, &b.GUID, &name, &ip, &b.Expires, &ts, &reason); err != nil {
		return nil, err
	}
	b.Name = scanNullStringValue(name)
	b.IP = scanNullStringValue(ip)
	b.Timestamp = scanNullStringValue(ts)
	b.Reason = scanNullStringValue(reason)
	return &b, nil
}

// scanBans drains rows into bans and closes them
func scanBans(rows *sql.Rows) ([]Ban, error) {
	defer rows.Close()
	var out []Ban
	for rows.Next() {
		b, err := scanBan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}
