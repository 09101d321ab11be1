// Package ytdlp downloads the best available audio stream for a video URL by
// shelling out to yt-dlp.
//
// The caller supplies the output template, so every file yt-dlp writes is
// named by the caller's job and can be removed by it afterwards.
package ytdlp
