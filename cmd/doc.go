// Command log-find-time is a tool to extract the records between two timestamps from a large log file.
//
// It binary searches the byte offsets of the file for the records whose
// "YYMMDD HH:MM:SS<TAB>" headers bound the requested range, then copies the
// bytes in between unmodified, so only a few chunks of a many gigabyte file
// are ever read before the copy.
//
// Usage:
//
//	log-find-time "240115 09:00:00" "240115 10:00:00" /var/log/app.log > slice.log
//	log-find-time --location=UTC --start=0 --stop="240115 10:00:00"
//	              --input=/var/log/app.log --output=slice.log.zst --compress=zstd
package main
